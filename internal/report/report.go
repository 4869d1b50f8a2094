package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"catalog-import-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

var outcomeHeaders = []string{"row", "title", "status", "message", "product_id"}

func outcomeRecord(o models.UploadOutcome) []string {
	productID := ""
	if o.ProductID != nil {
		productID = strconv.FormatInt(*o.ProductID, 10)
	}
	return []string{strconv.Itoa(o.RowNumber), o.Title, o.Status, o.Message, productID}
}

// WriteCSV writes one line per outcome after a header line
func WriteCSV(w io.Writer, outcomes []models.UploadOutcome) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(outcomeHeaders); err != nil {
		return err
	}
	for _, o := range outcomes {
		if err := writer.Write(outcomeRecord(o)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the outcomes to a "Results" sheet with a summary line
func WriteXLSX(w io.Writer, outcomes []models.UploadOutcome) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, h := range outcomeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, h)
		f.SetCellStyle(resultsSheet, cell, cell, styles.header)
	}

	for i, o := range outcomes {
		row := i + 2
		f.SetCellValue(resultsSheet, fmt.Sprintf("A%d", row), o.RowNumber)
		f.SetCellValue(resultsSheet, fmt.Sprintf("B%d", row), o.Title)
		f.SetCellValue(resultsSheet, fmt.Sprintf("C%d", row), o.Status)
		f.SetCellValue(resultsSheet, fmt.Sprintf("D%d", row), o.Message)
		if o.ProductID != nil {
			f.SetCellValue(resultsSheet, fmt.Sprintf("E%d", row), *o.ProductID)
		}
		if !o.Succeeded() {
			f.SetCellStyle(resultsSheet, fmt.Sprintf("C%d", row), fmt.Sprintf("C%d", row), styles.failed)
		}
	}

	summary := models.Summarize(outcomes)
	summaryRow := len(outcomes) + 3
	f.SetCellValue(resultsSheet, fmt.Sprintf("A%d", summaryRow), "Summary")
	f.SetCellValue(resultsSheet, fmt.Sprintf("B%d", summaryRow),
		fmt.Sprintf("%d succeeded, %d failed of %d", summary.Succeeded, summary.Failed, summary.Total))

	f.SetColWidth(resultsSheet, "A", "A", 8)
	f.SetColWidth(resultsSheet, "B", "B", 40)
	f.SetColWidth(resultsSheet, "C", "C", 10)
	f.SetColWidth(resultsSheet, "D", "D", 80)
	f.SetColWidth(resultsSheet, "E", "E", 18)

	_, err = f.WriteTo(w)
	return err
}

type sheetStyles struct {
	header   int
	required int
	failed   int
}

func newStyles(f *excelize.File) (*sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	required, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	failed, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "C00000"},
	})
	if err != nil {
		return nil, err
	}
	return &sheetStyles{header: header, required: required, failed: failed}, nil
}
