package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Error(), "boom")
}

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrNotFound, "record not found")
	assert.Equal(t, "record not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.True(t, errors.Is(clone, ErrNotFound))
	assert.False(t, errors.Is(clone, ErrValidation))
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrInvalidCredentials, ""))
	assert.True(t, HasCode(wrapped, ErrInvalidCredentials.Code))
	assert.False(t, HasCode(errors.New("plain"), ErrInvalidCredentials.Code))
}
