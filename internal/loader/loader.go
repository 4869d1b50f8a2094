package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"catalog-import-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// File types accepted by LoadFile
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// DetectFileType maps a filename to a supported file type
func DetectFileType(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx", ".xlsm":
		return FileTypeXLSX, nil
	}
	return "", fmt.Errorf("unsupported file type %q: use .csv or .xlsx", filepath.Ext(filename))
}

// LoadFile reads a CSV or XLSX file into a typed batch
func LoadFile(path string) (*models.Batch, error) {
	fileType, err := DetectFileType(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return Load(file, fileType)
}

// Load reads a source of the given file type
func Load(r io.Reader, fileType string) (*models.Batch, error) {
	switch fileType {
	case FileTypeCSV:
		return LoadCSV(r)
	case FileTypeXLSX:
		return LoadXLSX(r)
	}
	return nil, fmt.Errorf("unsupported file type %q", fileType)
}

// LoadCSV parses a CSV source whose first record is the header
func LoadCSV(r io.Reader) (*models.Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read CSV header: file is empty")
	}
	return buildBatch(records[0], records[1:]), nil
}

// LoadXLSX parses the "Products" sheet of a workbook, or its first sheet
func LoadXLSX(r io.Reader) (*models.Batch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Products") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}
	return buildBatch(excelRows[0], excelRows[1:]), nil
}

// buildBatch normalizes headers, drops fully blank records and types each column.
func buildBatch(header []string, records [][]string) *models.Batch {
	type column struct {
		name  string
		index int
	}

	columns := make([]column, 0, len(header))
	names := make([]string, 0, len(header))
	seen := make(map[string]struct{})
	for i, h := range header {
		name := normalizeHeader(h)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		columns = append(columns, column{name: name, index: i})
		names = append(names, name)
	}

	cells := make([][]string, 0, len(records))
	for _, record := range records {
		values := make([]string, len(columns))
		blank := true
		for j, col := range columns {
			if col.index < len(record) {
				values[j] = strings.TrimSpace(record[col.index])
			}
			if values[j] != "" {
				blank = false
			}
		}
		if !blank {
			cells = append(cells, values)
		}
	}

	kinds := make([]cellKind, len(columns))
	for j := range columns {
		kinds[j] = inferKind(cells, j)
	}

	rows := make([]models.Row, 0, len(cells))
	for _, values := range cells {
		row := make(models.Row, len(columns))
		for j, col := range columns {
			row[col.name] = convert(values[j], kinds[j])
		}
		rows = append(rows, row)
	}

	return &models.Batch{Columns: names, Rows: rows}
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(strings.TrimPrefix(h, "\ufeff")))
	return strings.TrimSpace(strings.TrimSuffix(h, "*"))
}

type cellKind int

const (
	kindString cellKind = iota
	kindNumber
	kindBool
)

// inferKind types a column from its non-blank cells. Values with leading
// zeros ("007") keep the column textual.
func inferKind(cells [][]string, j int) cellKind {
	numeric, boolean, populated := true, true, false
	for _, values := range cells {
		v := values[j]
		if v == "" {
			continue
		}
		populated = true
		if !numberPattern.MatchString(v) || hasLeadingZero(v) {
			numeric = false
		}
		if lv := strings.ToLower(v); lv != "true" && lv != "false" {
			boolean = false
		}
		if !numeric && !boolean {
			return kindString
		}
	}
	switch {
	case !populated:
		return kindString
	case numeric:
		return kindNumber
	case boolean:
		return kindBool
	}
	return kindString
}

func hasLeadingZero(v string) bool {
	v = strings.TrimLeft(v, "+-")
	return len(v) > 1 && v[0] == '0' && v[1] >= '0' && v[1] <= '9'
}

func convert(v string, kind cellKind) interface{} {
	if v == "" {
		return nil
	}
	switch kind {
	case kindNumber:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case kindBool:
		return strings.EqualFold(v, "true")
	}
	return v
}
