package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"catalog-import-service/internal/locks"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/report"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UploadStore persists import runs and their row results
type UploadStore interface {
	CreateUpload(ctx context.Context, upload *models.UploadHistory) error
	UpdateUploadStatus(ctx context.Context, id uuid.UUID, status models.UploadStatus, errorMessage string) error
	CompleteUpload(ctx context.Context, upload *models.UploadHistory) error
	CreateResults(ctx context.Context, results []models.ProductUploadResult) error
	GetUpload(ctx context.Context, id uuid.UUID) (*models.UploadHistory, error)
	ListUploads(ctx context.Context, opts *models.UploadListOptions) ([]models.UploadHistory, int64, error)
	ListResults(ctx context.Context, uploadID uuid.UUID, status string) ([]models.ProductUploadResult, error)
}

// StoreLocker prevents two imports into the same store at once
type StoreLocker interface {
	Acquire(ctx context.Context, storeURL string, ttl time.Duration) (locks.ReleaseFunc, error)
}

// ReportArchiver keeps a copy of finished import reports
type ReportArchiver interface {
	Archive(ctx context.Context, name string, body []byte) (string, error)
}

// ImportRequest is one batch to import
type ImportRequest struct {
	Filename string
	FileType string
	Batch    *models.Batch
}

// ImportResult is the outcome of a finished import run
type ImportResult struct {
	Upload   *models.UploadHistory  `json:"upload"`
	Outcomes []models.UploadOutcome `json:"outcomes"`
	Summary  models.ImportSummary   `json:"summary"`
	Warnings []string               `json:"warnings"`
}

// ImportServiceConfig configures an import service
type ImportServiceConfig struct {
	StoreURL string
	LockTTL  time.Duration
}

// ImportService validates, runs and records import batches
type ImportService struct {
	validator *RowValidator
	processor *BatchProcessor
	store     UploadStore
	locker    StoreLocker
	archiver  ReportArchiver
	config    ImportServiceConfig
	logger    *logrus.Entry
}

// NewImportService creates a new import service. locker and archiver may be nil.
func NewImportService(
	processor *BatchProcessor,
	store UploadStore,
	locker StoreLocker,
	archiver ReportArchiver,
	config ImportServiceConfig,
	logger *logrus.Entry,
) *ImportService {
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ImportService{
		validator: NewRowValidator(),
		processor: processor,
		store:     store,
		locker:    locker,
		archiver:  archiver,
		config:    config,
		logger:    logger.WithField("component", "import_service"),
	}
}

// Validate checks a batch without touching the network or the database
func (s *ImportService) Validate(batch *models.Batch) *models.ValidationReport {
	return s.validator.Validate(batch)
}

// Run imports a batch. An invalid batch fails with *BatchValidationError
// before anything is persisted or sent.
func (s *ImportService) Run(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.Batch == nil {
		return nil, fmt.Errorf("batch is required")
	}

	validation := s.validator.Validate(req.Batch)
	if !validation.Valid {
		return nil, &BatchValidationError{Report: validation}
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, s.config.StoreURL, s.config.LockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			// Release even if ctx was cancelled mid-run
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WithError(err).Warn("Failed to release import lock")
			}
		}()
	}

	now := time.Now()
	upload := &models.UploadHistory{
		ID:          uuid.New(),
		Filename:    req.Filename,
		FileType:    req.FileType,
		StoreURL:    s.config.StoreURL,
		RecordCount: len(req.Batch.Rows),
		Status:      models.UploadStatusProcessing,
		StartedAt:   &now,
	}
	if len(validation.Warnings) > 0 {
		upload.Warnings = models.JSONB{"messages": validation.Warnings}
	}
	if err := s.store.CreateUpload(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"upload_id": upload.ID,
		"filename":  req.Filename,
		"rows":      len(req.Batch.Rows),
	})
	log.Info("Starting import")

	outcomes := s.processor.Process(ctx, req.Batch.Rows)
	summary := models.Summarize(outcomes)

	// Persist even when the caller has gone away
	persistCtx := context.WithoutCancel(ctx)

	if err := s.store.CreateResults(persistCtx, buildResults(upload.ID, req.Batch.Rows, outcomes)); err != nil {
		log.WithError(err).Error("Failed to store row results")
		upload.ErrorMessage = fmt.Sprintf("failed to store row results: %v", err)
	}

	upload.SuccessCount = summary.Succeeded
	upload.ErrorCount = summary.Failed
	upload.Status = models.UploadStatusCompleted
	if skipped := countCancelled(outcomes); skipped > 0 {
		upload.Status = models.UploadStatusCancelled
		upload.ErrorMessage = fmt.Sprintf("import cancelled with %d rows not processed", skipped)
		if err := ctx.Err(); err != nil {
			upload.ErrorMessage += ": " + err.Error()
		}
	}

	if s.archiver != nil {
		if key, err := s.archive(persistCtx, upload.ID, outcomes); err != nil {
			log.WithError(err).Warn("Failed to archive import report")
		} else {
			upload.ReportKey = key
		}
	}

	if err := s.store.CompleteUpload(persistCtx, upload); err != nil {
		// Do not leave the run PROCESSING forever
		if statusErr := s.store.UpdateUploadStatus(persistCtx, upload.ID, models.UploadStatusFailed, err.Error()); statusErr != nil {
			log.WithError(statusErr).Error("Failed to mark upload as failed")
		}
		return nil, fmt.Errorf("failed to complete upload record: %w", err)
	}

	log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"status":    upload.Status,
	}).Info("Import finished")

	return &ImportResult{
		Upload:   upload,
		Outcomes: outcomes,
		Summary:  summary,
		Warnings: validation.Warnings,
	}, nil
}

// GetUpload returns a recorded import run
func (s *ImportService) GetUpload(ctx context.Context, id uuid.UUID) (*models.UploadHistory, error) {
	return s.store.GetUpload(ctx, id)
}

// ListUploads returns recorded import runs for the configured store
func (s *ImportService) ListUploads(ctx context.Context, limit, offset int) ([]models.UploadHistory, int64, error) {
	return s.store.ListUploads(ctx, &models.UploadListOptions{
		StoreURL: s.config.StoreURL,
		Limit:    limit,
		Offset:   offset,
	})
}

// ListResults returns the row results of an import run
func (s *ImportService) ListResults(ctx context.Context, id uuid.UUID, status string) ([]models.ProductUploadResult, error) {
	if _, err := s.store.GetUpload(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListResults(ctx, id, status)
}

func (s *ImportService) archive(ctx context.Context, uploadID uuid.UUID, outcomes []models.UploadOutcome) (string, error) {
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, outcomes); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return s.archiver.Archive(ctx, uploadID.String()+".xlsx", buf.Bytes())
}

func countCancelled(outcomes []models.UploadOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == models.OutcomeError && o.Message == cancelledMessage {
			n++
		}
	}
	return n
}

// buildResults pairs each outcome with the SEO columns of its source row.
func buildResults(uploadID uuid.UUID, rows []models.Row, outcomes []models.UploadOutcome) []models.ProductUploadResult {
	results := make([]models.ProductUploadResult, 0, len(outcomes))
	for i, o := range outcomes {
		result := models.ProductUploadResult{
			ID:              uuid.New(),
			UploadID:        uploadID,
			RowNumber:       o.RowNumber,
			ProductTitle:    o.Title,
			Status:          o.Status,
			Message:         o.Message,
			RemoteProductID: o.ProductID,
		}
		if i < len(rows) {
			row := rows[i]
			result.MetaTitle = row.String("meta_title")
			result.MetaDescription = row.String("meta_description")
			result.MetaKeywords = row.String("meta_keywords")
			result.URLHandle = row.String("url_handle")
			result.CategoryHierarchy = row.String("category_hierarchy")
		}
		results = append(results, result)
	}
	return results
}
