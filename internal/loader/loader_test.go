package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `Title *,Price *,SKU,option1_name,option1,inventory_quantity,taxable,url_handle
Mug,12.50,007,Color,Blue,5,true,blue-mug
Cup,9,,Size,42,,false,
,,,,,,,
Plate,abc,P-1,,,3,TRUE,plate
`

func TestLoadCSV_TypesColumns(t *testing.T) {
	batch, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "price", "sku", "option1_name", "option1", "inventory_quantity", "taxable", "url_handle"}, batch.Columns)
	require.Len(t, batch.Rows, 3, "blank rows are dropped")

	mug := batch.Rows[0]
	assert.Equal(t, "Mug", mug["title"])
	assert.Equal(t, "12.50", mug["price"], "price column has a non-numeric cell so stays textual")
	assert.Equal(t, "007", mug["sku"], "leading zeros keep the column textual")
	assert.Equal(t, "Blue", mug["option1"])
	assert.Equal(t, 5.0, mug["inventory_quantity"])
	assert.Equal(t, true, mug["taxable"])

	cup := batch.Rows[1]
	assert.Nil(t, cup["sku"])
	assert.Nil(t, cup["inventory_quantity"])
	assert.Nil(t, cup["url_handle"])
	assert.Equal(t, false, cup["taxable"])
	assert.Equal(t, "42", cup["option1"])
}

func TestLoadCSV_NumericColumn(t *testing.T) {
	batch, err := LoadCSV(strings.NewReader("title,price\nA,19.99\nB,20\nC,\n"))
	require.NoError(t, err)

	assert.Equal(t, 19.99, batch.Rows[0]["price"])
	assert.Equal(t, 20.0, batch.Rows[1]["price"])
	assert.Nil(t, batch.Rows[2]["price"])
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadCSV_HeaderOnly(t *testing.T) {
	batch, err := LoadCSV(strings.NewReader("title,price\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "price"}, batch.Columns)
	assert.Empty(t, batch.Rows)
}

func TestLoadXLSX_PrefersProductsSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "ignored")
	_, err := f.NewSheet("Products")
	require.NoError(t, err)
	f.SetSheetRow("Products", "A1", &[]interface{}{"Title *", "Price *", "image_url"})
	f.SetSheetRow("Products", "A2", &[]interface{}{"Lamp", 30, "https://cdn.example.com/lamp.jpg"})
	f.SetSheetRow("Products", "A3", &[]interface{}{"Desk", 120.5, ""})

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	batch, err := LoadXLSX(&buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "price", "image_url"}, batch.Columns)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "Lamp", batch.Rows[0]["title"])
	assert.Equal(t, 30.0, batch.Rows[0]["price"])
	assert.Equal(t, 120.5, batch.Rows[1]["price"])
	assert.Nil(t, batch.Rows[1]["image_url"])
}

func TestLoadFile_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,price\nMug,5\n"), 0o600))

	batch, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, batch.Rows, 1)

	_, err = LoadFile(filepath.Join(dir, "products.xls"))
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestDetectFileType(t *testing.T) {
	ft, err := DetectFileType("Products.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FileTypeXLSX, ft)

	ft, err = DetectFileType("a.csv")
	require.NoError(t, err)
	assert.Equal(t, FileTypeCSV, ft)

	_, err = DetectFileType("a.json")
	assert.Error(t, err)
}
