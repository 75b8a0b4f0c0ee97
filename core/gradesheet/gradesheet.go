// Package gradesheet merges stored scores into a spreadsheet template handed in by a teacher.
package gradesheet

import (
	"regexp"
	"strings"
)

const (
	// DefaultScanRows is how many leading rows are searched for the header row.
	DefaultScanRows = 10
	// sampleRows is how many raw rows are reported when no header row is found.
	sampleRows = 5
)

var (
	idHeaderRegex     = regexp.MustCompile(`(?i)^(學號|studentid|student\s*id|student\s*no|studentno|stu\s*no|no)$`)
	idHeaderPrefix    = regexp.MustCompile(`(?i)^(學號|student\s*no|student\s*id|studentid)`)
	scoreHeaderRegex  = regexp.MustCompile(`(?i)成績|score|分數|grade`)
	repeatedHeaderRow = regexp.MustCompile(`(?i)^(學號|student\s*no|student\s*id|studentid|姓名|name|chinese\s*name)$`)
)

// TemplateError is returned when a template cannot be used. FoundRows holds the first rows of the template, if any.
type TemplateError struct {
	Message   string
	Detail    string
	FoundRows [][]string
}

func (err *TemplateError) Error() string {
	return err.Message
}

var ErrEmptyTemplate = &TemplateError{Message: "the template is empty"}

// NoHeaderError reports a template without a student identifier header, along with its first rows.
func NoHeaderError(rows [][]string) *TemplateError {
	n := len(rows)
	if n > sampleRows {
		n = sampleRows
	}
	return &TemplateError{
		Message:   "no student identifier column found in the template",
		Detail:    `the template must have a "學號", "Student NO" or "StudentID" column`,
		FoundRows: rows[:n],
	}
}

// Cell is a value to write into the template, by zero-based coordinates.
type Cell struct {
	Row   int
	Col   int
	Value interface{}
}

// Result is the outcome of a Merge.
type Result struct {
	// Cells are the only cells to write; every other cell of the template stays as is.
	Cells       []Cell
	HeaderRow   int
	IDColumn    int
	ScoreColumn int
	Updated     int
	NotFound    []string
}

// IsIDHeader reports whether a cell names the student identifier column.
func IsIDHeader(cell string) bool {
	cell = strings.TrimSpace(cell)
	return idHeaderRegex.MatchString(cell) || idHeaderPrefix.MatchString(cell)
}

// FindHeader returns the index of the first row, among the first scanRows, holding a student identifier header,
// along with the column of that header.
func FindHeader(rows [][]string, scanRows int) (row, col int, ok bool) {
	if scanRows <= 0 {
		scanRows = DefaultScanRows
	}
	for i := 0; i < len(rows) && i < scanRows; i++ {
		for j, cell := range rows[i] {
			if IsIDHeader(cell) {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// FindScoreColumn returns the index of the first header looking like a score column, or -1.
func FindScoreColumn(headers []string) int {
	for i, h := range headers {
		if scoreHeaderRegex.MatchString(strings.TrimSpace(h)) {
			return i
		}
	}
	return -1
}

// Merge matches the template rows against scores keyed by student identifier and returns the cells to write
// into the score column. A score column named itemName is appended to the header row when the template has none.
// Identifiers without a score are reported in Result.NotFound and their rows get no cell.
func Merge(rows [][]string, scores map[string]float64, itemName string, scanRows int) (Result, error) {
	if len(rows) == 0 {
		return Result{}, ErrEmptyTemplate
	}

	headerRow, idCol, ok := FindHeader(rows, scanRows)
	if !ok {
		return Result{}, NoHeaderError(rows)
	}

	res := Result{HeaderRow: headerRow, IDColumn: idCol, NotFound: []string{}}
	res.ScoreColumn = FindScoreColumn(rows[headerRow])
	if res.ScoreColumn == -1 {
		res.ScoreColumn = len(rows[headerRow])
		res.Cells = append(res.Cells, Cell{Row: headerRow, Col: res.ScoreColumn, Value: itemName})
	}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if idCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" || repeatedHeaderRow.MatchString(id) {
			continue
		}

		score, found := scores[id]
		if !found {
			res.NotFound = append(res.NotFound, id)
			continue
		}
		res.Cells = append(res.Cells, Cell{Row: i, Col: res.ScoreColumn, Value: score})
		res.Updated++
	}
	return res, nil
}
