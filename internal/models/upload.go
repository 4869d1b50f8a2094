package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// UploadStatus represents the lifecycle of an import run
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "PENDING"
	UploadStatusProcessing UploadStatus = "PROCESSING"
	UploadStatusCompleted  UploadStatus = "COMPLETED"
	UploadStatusFailed     UploadStatus = "FAILED"
	UploadStatusCancelled  UploadStatus = "CANCELLED"
)

// IsTerminal reports whether the run has finished.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed || s == UploadStatusCancelled
}

// UploadHistory records one import run against a store
type UploadHistory struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Filename     string       `gorm:"type:varchar(255);not null" json:"filename"`
	FileType     string       `gorm:"type:varchar(20)" json:"fileType"`
	StoreURL     string       `gorm:"type:varchar(255);not null;index:idx_upload_history_store" json:"storeUrl"`
	RecordCount  int          `gorm:"default:0" json:"recordCount"`
	SuccessCount int          `gorm:"default:0" json:"successCount"`
	ErrorCount   int          `gorm:"default:0" json:"errorCount"`
	Status       UploadStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_upload_history_status" json:"status"`
	ErrorMessage string       `gorm:"type:text" json:"errorMessage,omitempty"`
	Warnings     JSONB        `gorm:"type:jsonb" json:"warnings,omitempty"`
	ReportKey    string       `gorm:"type:varchar(512)" json:"reportKey,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updatedAt"`

	Results []ProductUploadResult `gorm:"foreignKey:UploadID" json:"results,omitempty"`
}

func (UploadHistory) TableName() string {
	return "upload_history"
}

// ProductUploadResult records the outcome of one source row
type ProductUploadResult struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UploadID        uuid.UUID `gorm:"type:uuid;not null;index:idx_upload_results_upload" json:"uploadId"`
	RowNumber       int       `gorm:"not null" json:"rowNumber"`
	ProductTitle    string    `gorm:"type:varchar(255)" json:"productTitle"`
	Status          string    `gorm:"type:varchar(20);not null;index:idx_upload_results_status" json:"status"`
	Message         string    `gorm:"type:text" json:"message"`
	RemoteProductID *int64    `json:"remoteProductId,omitempty"`

	// SEO columns copied from the source row
	MetaTitle         string `gorm:"type:varchar(255)" json:"metaTitle,omitempty"`
	MetaDescription   string `gorm:"type:text" json:"metaDescription,omitempty"`
	MetaKeywords      string `gorm:"type:text" json:"metaKeywords,omitempty"`
	URLHandle         string `gorm:"type:varchar(255)" json:"urlHandle,omitempty"`
	CategoryHierarchy string `gorm:"type:text" json:"categoryHierarchy,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
}

func (ProductUploadResult) TableName() string {
	return "product_upload_results"
}

// Outcome converts a stored result back to a row outcome.
func (r ProductUploadResult) Outcome() UploadOutcome {
	return UploadOutcome{
		RowNumber: r.RowNumber,
		Title:     r.ProductTitle,
		Status:    r.Status,
		Message:   r.Message,
		ProductID: r.RemoteProductID,
	}
}

// UploadListOptions filters upload history listings
type UploadListOptions struct {
	StoreURL string
	Status   UploadStatus
	Limit    int
	Offset   int
}
