package repository

import (
	"context"
	"time"

	"catalog-import-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const resultInsertBatchSize = 200

// UploadRepository handles database operations for import runs
type UploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// CreateUpload creates a new upload history record
func (r *UploadRepository) CreateUpload(ctx context.Context, upload *models.UploadHistory) error {
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(upload).Error
}

// UpdateUploadStatus updates the run status
func (r *UploadRepository) UpdateUploadStatus(ctx context.Context, id uuid.UUID, status models.UploadStatus, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now(),
	}
	if status.IsTerminal() {
		now := time.Now()
		updates["completed_at"] = &now
	}
	return r.db.WithContext(ctx).
		Model(&models.UploadHistory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CompleteUpload stores the final counts and status of a run
func (r *UploadRepository) CompleteUpload(ctx context.Context, upload *models.UploadHistory) error {
	now := time.Now()
	upload.CompletedAt = &now
	return r.db.WithContext(ctx).
		Model(&models.UploadHistory{}).
		Where("id = ?", upload.ID).
		Updates(map[string]interface{}{
			"status":        upload.Status,
			"record_count":  upload.RecordCount,
			"success_count": upload.SuccessCount,
			"error_count":   upload.ErrorCount,
			"error_message": upload.ErrorMessage,
			"report_key":    upload.ReportKey,
			"completed_at":  upload.CompletedAt,
			"updated_at":    now,
		}).Error
}

// CreateResults stores row results in batches
func (r *UploadRepository) CreateResults(ctx context.Context, results []models.ProductUploadResult) error {
	if len(results) == 0 {
		return nil
	}
	for i := range results {
		if results[i].ID == uuid.Nil {
			results[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(results, resultInsertBatchSize).Error
}

// GetUpload retrieves an upload by ID
func (r *UploadRepository) GetUpload(ctx context.Context, id uuid.UUID) (*models.UploadHistory, error) {
	var upload models.UploadHistory
	err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

// ListUploads lists import runs, newest first
func (r *UploadRepository) ListUploads(ctx context.Context, opts *models.UploadListOptions) ([]models.UploadHistory, int64, error) {
	var uploads []models.UploadHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&models.UploadHistory{})
	if opts.StoreURL != "" {
		query = query.Where("store_url = ?", opts.StoreURL)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	err := query.Order("created_at DESC").Find(&uploads).Error
	return uploads, total, err
}

// ListResults lists the row results of an upload in row order
func (r *UploadRepository) ListResults(ctx context.Context, uploadID uuid.UUID, status string) ([]models.ProductUploadResult, error) {
	var results []models.ProductUploadResult
	query := r.db.WithContext(ctx).Where("upload_id = ?", uploadID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("row_number ASC").Find(&results).Error
	return results, err
}
