package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"catalog-import-service/internal/clients"
	"catalog-import-service/internal/locks"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/report"
	"catalog-import-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	defaultFilename  = "api-upload"
)

// ImportRunner is the import service as seen by the HTTP layer
type ImportRunner interface {
	Validate(batch *models.Batch) *models.ValidationReport
	Run(ctx context.Context, req services.ImportRequest) (*services.ImportResult, error)
	GetUpload(ctx context.Context, id uuid.UUID) (*models.UploadHistory, error)
	ListUploads(ctx context.Context, limit, offset int) ([]models.UploadHistory, int64, error)
	ListResults(ctx context.Context, id uuid.UUID, status string) ([]models.ProductUploadResult, error)
}

// ConnectionTester checks the configured store credentials
type ConnectionTester interface {
	TestConnection(ctx context.Context) (*clients.ShopInfo, error)
}

// ImportRowsRequest is the body of validate and import calls
type ImportRowsRequest struct {
	Filename string       `json:"filename"`
	FileType string       `json:"fileType"`
	Columns  []string     `json:"columns"`
	Rows     []models.Row `json:"rows" binding:"required"`
}

func (r *ImportRowsRequest) batch() *models.Batch {
	if len(r.Columns) > 0 {
		return &models.Batch{Columns: r.Columns, Rows: r.Rows}
	}
	return models.NewBatch(r.Rows)
}

// ImportHandler handles import endpoints
type ImportHandler struct {
	service ImportRunner
	tester  ConnectionTester
	logger  *logrus.Entry
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ImportRunner, tester ConnectionTester, logger *logrus.Entry) *ImportHandler {
	return &ImportHandler{
		service: service,
		tester:  tester,
		logger:  logger.WithField("component", "import_handler"),
	}
}

// GetTemplate returns the import template as JSON, CSV or XLSX
func (h *ImportHandler) GetTemplate(c *gin.Context) {
	switch c.DefaultQuery("format", "json") {
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteTemplateCSV(&buf, models.ProductImportColumns); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		sendFile(c, "products_import_template.csv", "text/csv", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := report.WriteTemplateXLSX(&buf, models.ProductImportColumns); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		sendFile(c, "products_import_template.xlsx", xlsxContentType, buf.Bytes())
	default:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"columns": models.ProductImportColumns}})
	}
}

// ValidateRows validates a batch without importing it
func (h *ImportHandler) ValidateRows(c *gin.Context) {
	var req ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.service.Validate(req.batch())})
}

// CreateImport validates and imports a batch of rows
func (h *ImportHandler) CreateImport(c *gin.Context) {
	var req ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Filename == "" {
		req.Filename = defaultFilename
	}
	if req.FileType == "" {
		req.FileType = "json"
	}

	result, err := h.service.Run(c.Request.Context(), services.ImportRequest{
		Filename: req.Filename,
		FileType: req.FileType,
		Batch:    req.batch(),
	})
	if err != nil {
		var validationErr *services.BatchValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "validation failed",
				"data":  validationErr.Report,
			})
		case errors.Is(err, locks.ErrLockHeld):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.WithError(err).Error("Import failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// ListImports returns recorded import runs
func (h *ImportHandler) ListImports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	uploads, total, err := h.service.ListUploads(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  uploads,
		"total": total,
	})
}

// GetImport returns a single import run
func (h *ImportHandler) GetImport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	upload, err := h.service.GetUpload(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": upload})
}

// GetImportResults returns the row results of an import run as JSON, CSV or XLSX
func (h *ImportHandler) GetImportResults(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	results, err := h.service.ListResults(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	outcomes := make([]models.UploadOutcome, len(results))
	for i, r := range results {
		outcomes[i] = r.Outcome()
	}

	var buf bytes.Buffer
	switch c.DefaultQuery("format", "json") {
	case "csv":
		if err := report.WriteCSV(&buf, outcomes); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		sendFile(c, id.String()+".csv", "text/csv", buf.Bytes())
	case "xlsx":
		if err := report.WriteXLSX(&buf, outcomes); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		sendFile(c, id.String()+".xlsx", xlsxContentType, buf.Bytes())
	default:
		c.JSON(http.StatusOK, gin.H{
			"data":    results,
			"summary": models.Summarize(outcomes),
		})
	}
}

// TestConnection checks the store credentials
func (h *ImportHandler) TestConnection(c *gin.Context) {
	shop, err := h.tester.TestConnection(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		if code := clients.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "connection successful",
		"data":    shop,
	})
}

func (h *ImportHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func sendFile(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, body)
}
