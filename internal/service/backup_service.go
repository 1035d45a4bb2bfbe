package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
	"github.com/noah-isme/sma-merit/pkg/storage"
)

const (
	backupPrefix         = "backup_"
	safetyBackupPrefix   = "before_restore_"
	backupExtension      = ".json"
	backupStampLayout    = "20060102_150405"
	backupSnapshotFormat = 1
)

type backupRecordRepository interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)
	DrainAll(ctx context.Context, keep func([]models.Record) error) (int64, error)
	ReplaceAll(ctx context.Context, records []models.Record) error
}

type backupStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Exists(name string) bool
	List(ext string) ([]storage.FileInfo, error)
}

type summaryInvalidator interface {
	InvalidateSummaries(ctx context.Context)
}

// BackupService snapshots the ledger before destructive operations and restores snapshots.
type BackupService struct {
	repo    backupRecordRepository
	storage backupStorage
	cache   summaryInvalidator
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewBackupService constructs the service. cache and metrics may be nil.
func NewBackupService(repo backupRecordRepository, store backupStorage, cache summaryInvalidator, metrics *MetricsService, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{repo: repo, storage: store, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Reset clears the table and writes a backup of exactly the rows it removed.
// The delete is rolled back when the backup cannot be written.
func (s *BackupService) Reset(ctx context.Context) (*models.ResetResult, error) {
	var (
		info    *models.BackupInfo
		snapErr error
	)
	cleared, err := s.repo.DrainAll(ctx, func(records []models.Record) error {
		info, snapErr = s.snapshot(backupPrefix, records)
		return snapErr
	})
	if snapErr != nil {
		return nil, appErrors.Wrap(snapErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write backup")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear records")
	}

	s.afterMutation(ctx, "reset")
	s.logger.Info("ledger reset", zap.String("backup", info.Name), zap.Int64("cleared", cleared))
	return &models.ResetResult{Backup: *info, Cleared: cleared}, nil
}

// List returns the stored backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]models.BackupInfo, error) {
	files, err := s.storage.List(backupExtension)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list backups")
	}
	backups := make([]models.BackupInfo, 0, len(files))
	for _, f := range files {
		info := models.BackupInfo{Name: f.Name, Size: f.Size, CreatedAt: f.ModTime.UTC()}
		if snap, err := s.load(f.Name); err == nil {
			info.Records = len(snap.Records)
			if !snap.CreatedAt.IsZero() {
				info.CreatedAt = snap.CreatedAt
			}
		} else {
			s.logger.Warn("unreadable backup", zap.String("name", f.Name), zap.Error(err))
		}
		backups = append(backups, info)
	}
	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces the ledger with the named backup after saving a safety copy of the current data.
func (s *BackupService) Restore(ctx context.Context, name string) (*models.BackupInfo, error) {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, backupExtension) || !s.storage.Exists(name) {
		return nil, appErrors.Clone(appErrors.ErrBackupNotFound, fmt.Sprintf("backup %q not found", name))
	}
	snap, err := s.load(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "backup file is not readable")
	}

	current, err := s.repo.List(ctx, models.RecordFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read current records")
	}
	safety, err := s.snapshot(safetyBackupPrefix, current)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write safety backup")
	}

	records := normaliseRestored(snap.Records)
	if err := s.repo.ReplaceAll(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore records")
	}

	s.afterMutation(ctx, "restore")
	s.logger.Info("backup restored", zap.String("backup", name), zap.String("safety_backup", safety.Name), zap.Int("records", len(records)))
	return &models.BackupInfo{Name: name, Records: len(records), CreatedAt: snap.CreatedAt}, nil
}

func (s *BackupService) snapshot(prefix string, records []models.Record) (*models.BackupInfo, error) {
	createdAt := s.now().UTC()
	snap := models.BackupSnapshot{Version: backupSnapshotFormat, CreatedAt: createdAt, Records: records}
	if snap.Records == nil {
		snap.Records = []models.Record{}
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	base := prefix + s.now().Format(backupStampLayout)
	name := base + backupExtension
	for i := 1; s.storage.Exists(name); i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, backupExtension)
	}
	if _, err := s.storage.Save(name, payload); err != nil {
		return nil, err
	}
	return &models.BackupInfo{Name: name, Size: int64(len(payload)), Records: len(snap.Records), CreatedAt: createdAt}, nil
}

func (s *BackupService) load(name string) (*models.BackupSnapshot, error) {
	raw, err := s.storage.Read(name)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, appErrors.Clone(appErrors.ErrBackupNotFound, "")
		}
		return nil, err
	}
	var snap models.BackupSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", name, err)
	}
	return &snap, nil
}

func (s *BackupService) afterMutation(ctx context.Context, operation string) {
	if s.cache != nil {
		s.cache.InvalidateSummaries(ctx)
	}
	s.metrics.ObserveMutation(operation)
}

// normaliseRestored fills in fields older backups may lack.
func normaliseRestored(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i, r := range records {
		if r.PointType == "" {
			r.PointType = models.PointTypeAward
		}
		if r.Date == "" && !r.Timestamp.IsZero() {
			r.Date = r.Timestamp.Format(models.DateLayout)
		}
		out[i] = r
	}
	return out
}
