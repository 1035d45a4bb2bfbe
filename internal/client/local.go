package client

import (
	"context"
	"errors"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
}

type recordService interface {
	List(ctx context.Context, term string) ([]models.Record, error)
	StudentRecords(ctx context.Context, studentID string) ([]models.Record, error)
	Summaries(ctx context.Context, term string) ([]models.Summary, error)
	Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error)
	Update(ctx context.Context, id int64, req models.UpdateRecordRequest) (*models.Record, error)
	Delete(ctx context.Context, id int64) error
}

type backupService interface {
	Reset(ctx context.Context) (*models.ResetResult, error)
	List(ctx context.Context) ([]models.BackupInfo, error)
	Restore(ctx context.Context, name string) (*models.BackupInfo, error)
}

// LocalBackend calls the services directly against the configured database.
type LocalBackend struct {
	auth    authService
	records recordService
	backups backupService
}

// NewLocalBackend wires the in-process services.
func NewLocalBackend(auth authService, records recordService, backups backupService) *LocalBackend {
	return &LocalBackend{auth: auth, records: records, backups: backups}
}

func (b *LocalBackend) Authenticate(ctx context.Context, password string) (bool, error) {
	res, err := b.auth.Login(ctx, models.LoginRequest{Password: password})
	if errors.Is(err, appErrors.ErrInvalidCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

func (b *LocalBackend) ChangePassword(ctx context.Context, oldPassword, newPassword string) (bool, error) {
	err := b.auth.ChangePassword(ctx, models.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	if errors.Is(err, appErrors.ErrForbidden) {
		return false, nil
	}
	return err == nil, err
}

func (b *LocalBackend) CreateRecord(ctx context.Context, req models.CreateRecordRequest) error {
	_, err := b.records.Create(ctx, req)
	return err
}

func (b *LocalBackend) ListRecords(ctx context.Context) ([]models.Record, error) {
	return b.records.List(ctx, "")
}

func (b *LocalBackend) SearchRecords(ctx context.Context, term string) ([]models.Record, error) {
	return b.records.List(ctx, term)
}

func (b *LocalBackend) ListSummaries(ctx context.Context) ([]models.Summary, error) {
	return b.records.Summaries(ctx, "")
}

func (b *LocalBackend) SearchSummaries(ctx context.Context, term string) ([]models.Summary, error) {
	return b.records.Summaries(ctx, term)
}

func (b *LocalBackend) StudentRecords(ctx context.Context, studentID string) ([]models.Record, error) {
	return b.records.StudentRecords(ctx, studentID)
}

func (b *LocalBackend) UpdateRecord(ctx context.Context, id int64, req models.UpdateRecordRequest) error {
	_, err := b.records.Update(ctx, id, req)
	return err
}

func (b *LocalBackend) DeleteRecord(ctx context.Context, id int64) error {
	return b.records.Delete(ctx, id)
}

func (b *LocalBackend) Reset(ctx context.Context) error {
	_, err := b.backups.Reset(ctx)
	return err
}

func (b *LocalBackend) ListBackups(ctx context.Context) ([]models.BackupInfo, error) {
	return b.backups.List(ctx)
}

func (b *LocalBackend) RestoreBackup(ctx context.Context, name string) error {
	_, err := b.backups.Restore(ctx, name)
	return err
}
