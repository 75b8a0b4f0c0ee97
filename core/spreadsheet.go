package core

import "io"

// Spreadsheet is any service that can open tabular documents and edit them in place.
type Spreadsheet interface {
	// Open reads a document from r.
	Open(r io.Reader) (Workbook, error)
	// ContentType is the MIME type of the produced documents.
	ContentType() string
	// Ext is the file extension of the produced documents (with the leading dot).
	Ext() string
}

// Workbook is an opened document. Only its first sheet is read and written.
type Workbook interface {
	// Sheet returns the name of the first sheet.
	Sheet() string
	// Rows returns the raw (unformatted) cell values of the first sheet.
	Rows() ([][]string, error)
	// SetCell sets the value of a cell of the first sheet, by zero-based coordinates.
	// The cell keeps its style.
	SetCell(row, col int, value interface{}) error
	// Bytes serializes the workbook with its first sheet only.
	Bytes() ([]byte, error)
	Close() error
}
