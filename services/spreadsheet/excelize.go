// Package spreadsheetsvc reads & edits xlsx documents with excelize.
package spreadsheetsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExcelizeSpreadsheet struct{}

var _ core.Spreadsheet = (*ExcelizeSpreadsheet)(nil)

func NewExcelizeSpreadsheet() *ExcelizeSpreadsheet {
	return &ExcelizeSpreadsheet{}
}

func (ExcelizeSpreadsheet) ContentType() string { return xlsxContentType }

func (ExcelizeSpreadsheet) Ext() string { return ".xlsx" }

func (ExcelizeSpreadsheet) Open(r io.Reader) (core.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	sheet := f.GetSheetName(0)
	if sheet == "" {
		_ = f.Close()
		return nil, errors.New("the spreadsheet does not contain any sheet")
	}
	return &workbook{file: f, sheet: sheet}, nil
}

type workbook struct {
	file  *excelize.File
	sheet string
}

var _ core.Workbook = (*workbook)(nil)

func (wb *workbook) Sheet() string { return wb.sheet }

// Rows returns raw values so that numbers are not truncated by their display format.
// Trailing empty cells of a row are dropped.
func (wb *workbook) Rows() ([][]string, error) {
	rows, err := wb.file.GetRows(wb.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "getting rows of sheet %q", wb.sheet)
	}
	return rows, nil
}

func (wb *workbook) SetCell(row, col int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return errors.Wrap(err, "getting cell name")
	}
	if err = wb.file.SetCellValue(wb.sheet, cell, value); err != nil {
		return errors.Wrapf(err, "setting cell %s", cell)
	}
	return nil
}

func (wb *workbook) Bytes() ([]byte, error) {
	for _, name := range wb.file.GetSheetList() {
		if name == wb.sheet {
			continue
		}
		if err := wb.file.DeleteSheet(name); err != nil {
			return nil, errors.Wrapf(err, "deleting sheet %q", name)
		}
	}
	wb.file.SetActiveSheet(0)

	buf, err := wb.file.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing spreadsheet")
	}
	return buf.Bytes(), nil
}

func (wb *workbook) Close() error {
	return wb.file.Close()
}
