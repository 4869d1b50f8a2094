package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"catalog-import-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	templateSheet     = "Products"
	instructionsSheet = "Instructions"
)

// WriteTemplateCSV writes the header line of the import template
func WriteTemplateCSV(w io.Writer, columns []models.ImportColumn) error {
	writer := csv.NewWriter(w)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTemplateXLSX writes the import template workbook. Required columns
// are marked with " *", which the loader strips again.
func WriteTemplateXLSX(w io.Writer, columns []models.ImportColumn) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		style := styles.header
		if col.Required {
			headerText = col.Name + " *"
			style = styles.required
		}
		f.SetCellValue(templateSheet, cell, headerText)
		f.SetCellStyle(templateSheet, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(templateSheet, colName, colName, 20)
	}

	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return err
	}
	f.SetCellValue(instructionsSheet, "A1", "Product Import Instructions")
	f.SetCellValue(instructionsSheet, "A3", "Columns marked * are required. Each row creates one new product.")
	f.SetCellValue(instructionsSheet, "A4", "Add option2/option2_name, image_url3/image_alt3 and so on for more options and images.")
	f.SetCellValue(instructionsSheet, "A5", "Importing the same file twice creates duplicate products.")

	f.SetCellValue(instructionsSheet, "A7", "Column")
	f.SetCellValue(instructionsSheet, "B7", "Description")
	f.SetCellValue(instructionsSheet, "C7", "Required")
	f.SetCellValue(instructionsSheet, "D7", "Example")
	for i, col := range columns {
		row := i + 8
		required := "No"
		if col.Required {
			required = "Yes"
		}
		f.SetCellValue(instructionsSheet, fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue(instructionsSheet, fmt.Sprintf("B%d", row), col.Description)
		f.SetCellValue(instructionsSheet, fmt.Sprintf("C%d", row), required)
		f.SetCellValue(instructionsSheet, fmt.Sprintf("D%d", row), col.Example)
	}
	f.SetColWidth(instructionsSheet, "A", "A", 25)
	f.SetColWidth(instructionsSheet, "B", "B", 60)
	f.SetColWidth(instructionsSheet, "C", "C", 12)
	f.SetColWidth(instructionsSheet, "D", "D", 40)

	_, err = f.WriteTo(w)
	return err
}
