package models

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBatch_UnionOfColumns(t *testing.T) {
	batch := NewBatch([]Row{
		{"title": "A", "price": 1.0},
		{"title": "B", "vendor": "Acme"},
	})

	assert.Equal(t, []string{"price", "title", "vendor"}, batch.Columns)
	assert.True(t, batch.HasColumn("vendor"))
	assert.False(t, batch.HasColumn("sku"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank(math.NaN()))
	assert.False(t, IsBlank(0.0))
	assert.False(t, IsBlank(false))
	assert.False(t, IsBlank("x"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", FormatValue(42.0))
	assert.Equal(t, "19.99", FormatValue(19.99))
	assert.Equal(t, "7", FormatValue(7))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "Red", FormatValue("  Red "))
	assert.Equal(t, "", FormatValue(nil))
}

func TestRow_StringOr(t *testing.T) {
	row := Row{"status": " ", "vendor": "Acme"}

	assert.Equal(t, "active", row.StringOr("status", "active"))
	assert.Equal(t, "Acme", row.StringOr("vendor", "none"))
	assert.Equal(t, "none", row.StringOr("missing", "none"))
}

func TestNumberedColumns(t *testing.T) {
	pattern := regexp.MustCompile(`^option(\d+)$`)

	got := NumberedColumns([]string{"option10", "option2", "option1_name", "option1", "title", "option02"}, pattern)

	assert.Equal(t, []int{1, 2, 10}, got)
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]UploadOutcome{
		{Status: OutcomeSuccess},
		{Status: OutcomeError},
		{Status: OutcomeSuccess},
	})

	assert.Equal(t, ImportSummary{Total: 3, Succeeded: 2, Failed: 1}, summary)
}
