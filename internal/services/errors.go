package services

import (
	"fmt"
	"strings"

	"catalog-import-service/internal/models"
)

// BatchValidationError is returned when a batch fails validation; no row
// has been sent to the remote catalog.
type BatchValidationError struct {
	Report *models.ValidationReport
}

func (e *BatchValidationError) Error() string {
	if e.Report == nil || len(e.Report.Errors) == 0 {
		return "batch validation failed"
	}
	return fmt.Sprintf("batch validation failed: %s", strings.Join(e.Report.Errors, "; "))
}

// TransformError reports a row that cannot be turned into a product draft.
type TransformError struct {
	Field  string
	Reason string
}

func (e *TransformError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
