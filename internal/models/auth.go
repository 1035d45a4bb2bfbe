package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinPasswordLength is the shortest accepted new password.
const MinPasswordLength = 3

// LoginRequest carries the shared operator password.
type LoginRequest struct {
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse is returned for a valid password.
type LoginResponse struct {
	Valid       bool      `json:"valid"`
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating the password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=3"`
}

// ChangePasswordResponse reports whether the old password matched.
type ChangePasswordResponse struct {
	Changed bool `json:"changed"`
}

// Credential is the single stored password hash.
type Credential struct {
	PasswordHash string    `db:"password_hash"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
