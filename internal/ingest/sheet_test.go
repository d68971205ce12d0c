package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadTable_CSVStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Branch,Total\nA,1\n")...)

	table, err := ReadTable("sales.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Branch", "Total"}, table.Headers)
	assert.Equal(t, [][]string{{"A", "1"}}, table.Rows)
}

func TestReadTable_UnknownExtensionIsCSV(t *testing.T) {
	table, err := ReadTable("upload", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, table.Rows)
}

func TestReadTable_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Branch", "Unit Price", "Quantity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{" A ", 10, 3}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"B", 2.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ReadTable("Sales.XLSX", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Branch", "Unit Price", "Quantity"}, table.Headers)
	assert.Equal(t, [][]string{
		{"A", "10", "3"},
		{"B", "2.5", ""},
	}, table.Rows)
}

func TestReadTable_UnreadableWorkbook(t *testing.T) {
	for _, name := range []string{"bad.xlsx", "bad.xls"} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTable(name, []byte("definitely not a workbook"))
			assert.ErrorIs(t, err, ErrUnreadableUpload)
		})
	}
}
