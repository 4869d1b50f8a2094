package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"catalog-import-service/internal/models"
)

const (
	maxMetaTitleLength       = 70
	maxMetaDescriptionLength = 160
	categorySeparator        = ">"
)

var (
	requiredColumns = []string{"title", "price"}

	pricePattern  = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	handlePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// RowValidator checks a whole batch before any remote call is made
type RowValidator struct{}

// NewRowValidator creates a new row validator
func NewRowValidator() *RowValidator {
	return &RowValidator{}
}

// Validate inspects every row and returns the batch verdict. The batch is
// valid iff no hard error was found; warnings never block an import.
func (v *RowValidator) Validate(batch *models.Batch) *models.ValidationReport {
	report := &models.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	missing := make([]string, 0)
	for _, col := range requiredColumns {
		if !batch.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")))
		return report
	}

	var (
		missingTitles  []int
		invalidPrices  []int
		invalidImages  []int
		invalidHandles []int
		longTitles     []int
		longDescs      []int
		flatCategories []int
	)

	for i, row := range batch.Rows {
		if _, ok := row.Present("title"); !ok {
			missingTitles = append(missingTitles, i)
		}
		if !isValidPrice(row["price"]) {
			invalidPrices = append(invalidPrices, i)
		}
		if raw, ok := row.Present("image_url"); ok && !isAbsoluteURL(models.FormatValue(raw)) {
			invalidImages = append(invalidImages, i)
		}
		if raw, ok := row.Present("url_handle"); ok && !handlePattern.MatchString(models.FormatValue(raw)) {
			invalidHandles = append(invalidHandles, i)
		}

		if utf8.RuneCountInString(row.String("meta_title")) > maxMetaTitleLength {
			longTitles = append(longTitles, i)
		}
		if utf8.RuneCountInString(row.String("meta_description")) > maxMetaDescriptionLength {
			longDescs = append(longDescs, i)
		}
		if cat := row.String("category_hierarchy"); cat != "" && !strings.Contains(cat, categorySeparator) {
			flatCategories = append(flatCategories, i)
		}
	}

	if len(missingTitles) > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("Missing titles at rows: %s", formatIndices(missingTitles)))
	}
	if len(invalidPrices) > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("Invalid prices at rows: %s", formatIndices(invalidPrices)))
	}
	if len(invalidImages) > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("Invalid image URLs at rows: %s", formatIndices(invalidImages)))
	}
	if len(invalidHandles) > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf(
			"Invalid URL handles at rows: %s (use lowercase letters, numbers and hyphens only)", formatIndices(invalidHandles)))
	}

	if len(longTitles) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Meta titles longer than %d characters at rows: %s", maxMetaTitleLength, formatIndices(longTitles)))
	}
	if len(longDescs) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Meta descriptions longer than %d characters at rows: %s", maxMetaDescriptionLength, formatIndices(longDescs)))
	}
	if len(flatCategories) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Category hierarchies without '%s' separator at rows: %s", categorySeparator, formatIndices(flatCategories)))
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// isValidPrice accepts any number, or a string of digits with at most two decimals.
func isValidPrice(v interface{}) bool {
	if _, ok := models.AsFloat(v); ok {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	return pricePattern.MatchString(strings.TrimSpace(s))
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func formatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
