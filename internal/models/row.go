package models

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Row is one record of the tabular source keyed by column name.
// Values are nil, string, bool or a number (float64 from the loaders,
// any Go numeric type from JSON callers).
type Row map[string]interface{}

// Batch is an ordered collection of rows plus the column set of the source.
type Batch struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewBatch builds a batch from rows, deriving the column set from the keys
// present in any row. Columns are returned sorted so the result is stable.
func NewBatch(rows []Row) *Batch {
	seen := make(map[string]struct{})
	columns := make([]string, 0)
	for _, row := range rows {
		for key := range row {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)
	return &Batch{Columns: columns, Rows: rows}
}

// HasColumn reports whether the batch schema contains the column.
func (b *Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// IsBlank reports whether the value is absent: nil, NaN or a blank string.
func IsBlank(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}

// Present returns the raw value of a column when it is not blank.
func (r Row) Present(column string) (interface{}, bool) {
	v, ok := r[column]
	if !ok || IsBlank(v) {
		return nil, false
	}
	return v, true
}

// String returns the column value rendered as text, or "" when blank.
func (r Row) String(column string) string {
	v, ok := r.Present(column)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// StringOr returns the column text or the fallback when the column is blank.
func (r Row) StringOr(column, fallback string) string {
	if s := r.String(column); s != "" {
		return s
	}
	return fallback
}

// FormatValue renders a cell value as text. Whole floats lose the
// fractional part so a numeric "42" option value stays "42".
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// AsFloat converts a numeric value to float64. Strings are not parsed.
func AsFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case float32:
		return float64(val), !math.IsNaN(float64(val))
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}

// NumberedColumns returns the numeric suffixes of every column that matches
// pattern, which must capture the number in its first group. The result is
// sorted ascending.
func NumberedColumns(columns []string, pattern *regexp.Regexp) []int {
	seen := make(map[int]struct{})
	numbers := make([]int, 0)
	for _, c := range columns {
		m := pattern.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Keys returns the row's column names, sorted.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
