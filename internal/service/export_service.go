package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
	"github.com/noah-isme/sma-merit/pkg/export"
	"github.com/noah-isme/sma-merit/pkg/storage"
)

type exportSource interface {
	List(ctx context.Context, term string) ([]models.Record, error)
	Summaries(ctx context.Context, term string) ([]models.Summary, error)
}

type exportStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportFile is a stored export ready to be streamed.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportService renders ledger datasets and hands out signed download links.
type ExportService struct {
	source    exportSource
	storage   exportStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(source exportSource, store exportStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		source:    source,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate renders the requested view, stores it and returns a signed URL.
func (s *ExportService) Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	dataset, title, err := s.buildDataset(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	name := fmt.Sprintf("points_%s_%s_%s.%s", req.View, s.now().Format("20060102_150405"), ksuid.New().String(), req.Format)
	if _, err := s.storage.Save(name, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Sign(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated", zap.String("file", name), zap.Int("bytes", len(payload)))
	return &models.ExportResult{
		FileName:  name,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open verifies a download token and loads the referenced file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	name, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}
	data, err := s.storage.Read(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	contentType := "text/csv; charset=utf-8"
	if strings.HasSuffix(name, "."+string(models.ExportFormatPDF)) {
		contentType = "application/pdf"
	}
	return &ExportFile{Name: name, ContentType: contentType, Data: data}, nil
}

// Cleanup removes exports older than the configured TTL.
func (s *ExportService) Cleanup(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Strings("files", removed))
	}
	return removed, err
}

func (s *ExportService) buildDataset(ctx context.Context, req models.ExportRequest) (export.Dataset, string, error) {
	if req.View == models.ViewSummary {
		summaries, err := s.source.Summaries(ctx, req.Term)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return models.SummaryDataset(summaries), "Point Summary", nil
	}
	records, err := s.source.List(ctx, req.Term)
	if err != nil {
		return export.Dataset{}, "", err
	}
	return models.DetailDataset(records), "Point Records", nil
}
