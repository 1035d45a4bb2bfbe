package controller

import (
	"context"

	"github.com/noah-isme/sma-merit/internal/models"
)

// Backend is the set of ledger operations the controller drives.
type Backend interface {
	Authenticate(ctx context.Context, password string) (bool, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) (bool, error)
	CreateRecord(ctx context.Context, req models.CreateRecordRequest) error
	ListRecords(ctx context.Context) ([]models.Record, error)
	SearchRecords(ctx context.Context, term string) ([]models.Record, error)
	ListSummaries(ctx context.Context) ([]models.Summary, error)
	SearchSummaries(ctx context.Context, term string) ([]models.Summary, error)
	StudentRecords(ctx context.Context, studentID string) ([]models.Record, error)
	UpdateRecord(ctx context.Context, id int64, req models.UpdateRecordRequest) error
	DeleteRecord(ctx context.Context, id int64) error
	Reset(ctx context.Context) error
	ListBackups(ctx context.Context) ([]models.BackupInfo, error)
	RestoreBackup(ctx context.Context, name string) error
}

// sessionCloser is implemented by backends holding a session that Logout should drop.
type sessionCloser interface {
	CloseSession()
}

// FileSink receives exported files.
type FileSink interface {
	Save(name string, data []byte) (string, error)
}

// Notifier is told about every notification as it is raised.
type Notifier interface {
	Notify(n Notification)
}
