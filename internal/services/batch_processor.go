package services

import (
	"context"
	"fmt"

	"catalog-import-service/internal/clients"
	"catalog-import-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ProductCreator is the part of the catalog client the processor needs
type ProductCreator interface {
	CreateProduct(ctx context.Context, draft *models.ProductDraft) (*models.RemoteProduct, error)
}

// firstDataRow is the spreadsheet line of the first data row (line 1 is the header).
const firstDataRow = 2

const cancelledMessage = "import cancelled before this row was processed"

// BatchProcessor turns rows into remote products one at a time
type BatchProcessor struct {
	transformer *RowTransformer
	creator     ProductCreator
	retrier     *clients.Retrier
	logger      *logrus.Entry
}

// NewBatchProcessor creates a new batch processor. A nil retrier disables retries.
func NewBatchProcessor(creator ProductCreator, retrier *clients.Retrier, logger *logrus.Entry) *BatchProcessor {
	if retrier == nil {
		retrier = clients.NewRetrier(nil)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &BatchProcessor{
		transformer: NewRowTransformer(),
		creator:     creator,
		retrier:     retrier,
		logger:      logger.WithField("component", "batch_processor"),
	}
}

// Process creates one remote product per row, sequentially and in input
// order, and returns exactly one outcome per row. A failing row never stops
// the batch. When ctx is cancelled the remaining rows are reported as errors.
func (p *BatchProcessor) Process(ctx context.Context, rows []models.Row) []models.UploadOutcome {
	outcomes := make([]models.UploadOutcome, 0, len(rows))

	for i, row := range rows {
		rowNumber := i + firstDataRow

		select {
		case <-ctx.Done():
			outcomes = append(outcomes, errorOutcome(rowNumber, row, cancelledMessage))
			continue
		default:
		}

		outcome := p.processRow(ctx, rowNumber, row)
		if !outcome.Succeeded() {
			p.logger.WithFields(logrus.Fields{
				"row":   rowNumber,
				"title": outcome.Title,
				"error": outcome.Message,
			}).Error("Failed to import row")
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (p *BatchProcessor) processRow(ctx context.Context, rowNumber int, row models.Row) models.UploadOutcome {
	draft, err := p.transformer.Transform(row)
	if err != nil {
		return errorOutcome(rowNumber, row, err.Error())
	}

	var created *models.RemoteProduct
	result := p.retrier.Do(ctx, "create product", func(ctx context.Context) error {
		product, err := p.creator.CreateProduct(ctx, draft)
		if err != nil {
			return err
		}
		created = product
		return nil
	})
	if result.LastError != nil {
		return errorOutcome(rowNumber, row, result.LastError.Error())
	}
	if created == nil {
		return errorOutcome(rowNumber, row, "store returned no product")
	}

	id := created.ID
	title := created.Title
	if title == "" {
		title = draft.Title
	}
	p.logger.WithFields(logrus.Fields{
		"row":        rowNumber,
		"product_id": id,
		"attempts":   result.Attempts,
	}).Debug("Created product")

	return models.UploadOutcome{
		RowNumber: rowNumber,
		Title:     title,
		Status:    models.OutcomeSuccess,
		Message:   fmt.Sprintf("Created product %s with ID %d", title, id),
		ProductID: &id,
	}
}

func errorOutcome(rowNumber int, row models.Row, message string) models.UploadOutcome {
	return models.UploadOutcome{
		RowNumber: rowNumber,
		Title:     row.StringOr("title", models.UnknownTitle),
		Status:    models.OutcomeError,
		Message:   message,
	}
}
