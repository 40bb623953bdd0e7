package export

import (
	"io"

	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the workbook.
const (
	ItemsSheet    = "Items"
	FailuresSheet = "Failures"
)

// XLSXContentType is the media type of the workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes a workbook with the enriched items on ItemsSheet. Amount
// cells are numeric. When failures is non-empty they are listed on FailuresSheet.
func WriteXLSX(out io.Writer, res *claims.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ItemsSheet); err != nil {
		return eris.Wrap(err, "WriteXLSX: rename sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return eris.Wrap(err, "WriteXLSX: create header style")
	}

	if err := writeSheetRows(f, ItemsSheet, Columns, len(res.Items), func(i int) []interface{} {
		return itemCells(res.Items[i])
	}); err != nil {
		return err
	}
	if err := f.SetRowStyle(ItemsSheet, 1, 1, bold); err != nil {
		return eris.Wrap(err, "WriteXLSX: style header")
	}
	if err := f.SetColWidth(ItemsSheet, "A", "U", 18); err != nil {
		return eris.Wrap(err, "WriteXLSX: set column width")
	}

	if len(res.Failures) > 0 {
		if _, err := f.NewSheet(FailuresSheet); err != nil {
			return eris.Wrap(err, "WriteXLSX: add failures sheet")
		}
		if err := writeSheetRows(f, FailuresSheet, FailureColumns, len(res.Failures), func(i int) []interface{} {
			fail := res.Failures[i]
			return []interface{}{fail.Index, fail.Merchant, fail.Description, fail.Message}
		}); err != nil {
			return err
		}
		if err := f.SetRowStyle(FailuresSheet, 1, 1, bold); err != nil {
			return eris.Wrap(err, "WriteXLSX: style failures header")
		}
	}

	if err := f.Write(out); err != nil {
		return eris.Wrap(err, "WriteXLSX: write workbook")
	}
	return nil
}

func writeSheetRows(f *excelize.File, sheet string, header []string, n int, row func(i int) []interface{}) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return eris.Wrapf(err, "writeSheetRows: header of %s", sheet)
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "writeSheetRows: cell name")
		}
		cells := row(i)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return eris.Wrapf(err, "writeSheetRows: row %d of %s", i+2, sheet)
		}
	}
	return nil
}

func itemCells(item claims.EnrichedItem) []interface{} {
	row := Row(item)
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	cells[colOriginalAmount] = float64(item.OriginalAmount)
	cells[colEntityAmount] = float64(item.EntityAmount)
	return cells
}
