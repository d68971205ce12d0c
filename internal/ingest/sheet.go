package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ReadTable tokenizes an upload according to its file extension. Workbooks
// contribute their first sheet; anything that is not .xlsx or .xls is read
// as CSV text.
func ReadTable(filename string, data []byte) (Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	default:
		return Tokenize(string(bytes.TrimPrefix(data, utf8BOM))), nil
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readXLSX(data []byte) (Table, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnreadableUpload, err)
	}
	defer xl.Close()

	rows, err := xl.GetRows(xl.GetSheetName(0))
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnreadableUpload, err)
	}
	for _, row := range rows {
		trimAll(row)
	}
	return newTable(rows), nil
}

func readXLS(data []byte) (t Table, err error) {
	// The legacy BIFF reader panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			t, err = Table{}, fmt.Errorf("%w: %v", ErrUnreadableUpload, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnreadableUpload, err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableUpload)
	}

	var records [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		rec := make([]string, row.LastCol())
		for j := range rec {
			rec[j] = row.Col(j)
		}
		trimAll(rec)
		records = append(records, rec)
	}
	return newTable(records), nil
}

func trimAll(rec []string) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
}
