package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

type recordRepository interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)
	FindByID(ctx context.Context, id int64) (*models.Record, error)
	Create(ctx context.Context, record *models.Record) error
	Update(ctx context.Context, record *models.Record) error
	Delete(ctx context.Context, id int64) error
	Summaries(ctx context.Context, filter models.RecordFilter) ([]models.Summary, error)
}

// RecordService implements the ledger use cases: point records and per-student summaries.
type RecordService struct {
	repo      recordRepository
	cache     *SummaryCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecordService constructs a RecordService. cache and metrics may be nil.
func NewRecordService(repo recordRepository, cache *SummaryCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RecordService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
	_ = svc.validator.RegisterValidation("point_type", func(fl validator.FieldLevel) bool {
		return models.PointType(fl.Field().String()).Valid()
	})
	return svc
}

// List returns records, optionally filtered by a case-insensitive search term.
func (s *RecordService) List(ctx context.Context, term string) ([]models.Record, error) {
	records, err := s.repo.List(ctx, models.RecordFilter{Term: term})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, nil
}

// StudentRecords returns every record of one student.
func (s *RecordService) StudentRecords(ctx context.Context, studentID string) ([]models.Record, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	records, err := s.repo.List(ctx, models.RecordFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student records")
	}
	return records, nil
}

// Summaries aggregates records per student, served from cache when enabled.
func (s *RecordService) Summaries(ctx context.Context, term string) ([]models.Summary, error) {
	if cached, ok := s.cache.Lookup(ctx, term); ok {
		return cached, nil
	}

	summaries, err := s.repo.Summaries(ctx, models.RecordFilter{Term: term})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise records")
	}
	s.cache.Store(ctx, term, summaries)
	return summaries, nil
}

// Create stores a new record. Deductions are persisted as negative points and a missing date means today.
func (s *RecordService) Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Name = strings.TrimSpace(req.Name)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Date != nil {
		trimmed := strings.TrimSpace(*req.Date)
		req.Date = &trimmed
		if trimmed == "" {
			req.Date = nil
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}

	now := s.now()
	date := now.Format(models.DateLayout)
	if req.Date != nil {
		date = *req.Date
	}
	record := &models.Record{
		StudentID: req.StudentID,
		Name:      req.Name,
		Reason:    req.Reason,
		Points:    req.PointType.Signed(req.Points),
		PointType: req.PointType,
		Timestamp: now.UTC(),
		Date:      date,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}

	s.afterMutation(ctx, "create")
	s.logger.Info("record created",
		zap.Int64("id", record.ID),
		zap.String("student_id", record.StudentID),
		zap.String("point_type", string(record.PointType)),
		zap.Int("points", record.Points),
	)
	return record, nil
}

// Update replaces every editable field of an existing record.
func (s *RecordService) Update(ctx context.Context, id int64, req models.UpdateRecordRequest) (*models.Record, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Name = strings.TrimSpace(req.Name)
	req.Reason = strings.TrimSpace(req.Reason)
	req.Date = strings.TrimSpace(req.Date)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}

	record := &models.Record{
		ID:        id,
		StudentID: req.StudentID,
		Name:      req.Name,
		Reason:    req.Reason,
		Points:    req.PointType.Signed(req.Points),
		PointType: req.PointType,
		Timestamp: s.now().UTC(),
		Date:      req.Date,
	}
	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}

	s.afterMutation(ctx, "update")
	s.logger.Info("record updated", zap.Int64("id", id))
	return record, nil
}

// Delete removes a record by id.
func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	s.afterMutation(ctx, "delete")
	s.logger.Info("record deleted", zap.Int64("id", id))
	return nil
}

// Get loads one record.
func (s *RecordService) Get(ctx context.Context, id int64) (*models.Record, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return record, nil
}

// InvalidateSummaries drops every cached summary listing.
func (s *RecordService) InvalidateSummaries(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

func (s *RecordService) afterMutation(ctx context.Context, operation string) {
	s.InvalidateSummaries(ctx)
	s.metrics.ObserveMutation(operation)
}

// ParseRecordID converts a path parameter into a record id.
func ParseRecordID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid record id")
	}
	return id, nil
}
