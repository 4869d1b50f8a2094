package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGetUpload_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUploadRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "upload_history"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	upload, err := repo.GetUpload(context.Background(), uuid.New())

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, upload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUploads_CountsThenPages(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUploadRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "upload_history" WHERE store_url = $1`)).
		WithArgs("https://demo.myshopify.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "upload_history" WHERE store_url = $1 ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "filename", "store_url", "status", "created_at"}).
			AddRow(id.String(), "products.csv", "https://demo.myshopify.com", "COMPLETED", now))

	uploads, total, err := repo.ListUploads(context.Background(), &models.UploadListOptions{
		StoreURL: "https://demo.myshopify.com",
		Limit:    20,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, uploads, 1)
	assert.Equal(t, id, uploads[0].ID)
	assert.Equal(t, models.UploadStatusCompleted, uploads[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListResults_FiltersByStatus(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUploadRepository(gormDB)

	uploadID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "product_upload_results" WHERE upload_id = $1 AND status = $2 ORDER BY row_number ASC`)).
		WithArgs(uploadID, models.OutcomeError).
		WillReturnRows(sqlmock.NewRows([]string{"id", "upload_id", "row_number", "product_title", "status", "message"}).
			AddRow(uuid.New().String(), uploadID.String(), 3, "Broken", models.OutcomeError, "HTTP 422"))

	results, err := repo.ListResults(context.Background(), uploadID, models.OutcomeError)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].RowNumber)
	assert.Equal(t, "HTTP 422", results[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUploadStatus_TerminalSetsCompletedAt(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUploadRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "upload_history" SET .*"completed_at"=.*WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateUploadStatus(context.Background(), uuid.New(), models.UploadStatusFailed, "connection reset")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResults_AssignsIDs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUploadRepository(gormDB)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "product_upload_results"`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now).AddRow(now))
	mock.ExpectCommit()

	uploadID := uuid.New()
	results := []models.ProductUploadResult{
		{UploadID: uploadID, RowNumber: 2, ProductTitle: "A", Status: models.OutcomeSuccess},
		{UploadID: uploadID, RowNumber: 3, ProductTitle: "B", Status: models.OutcomeError},
	}

	require.NoError(t, repo.CreateResults(context.Background(), results))
	assert.NotEqual(t, uuid.Nil, results[0].ID)
	assert.NotEqual(t, uuid.Nil, results[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResults_EmptyIsNoop(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUploadRepository(gormDB)

	require.NoError(t, repo.CreateResults(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
