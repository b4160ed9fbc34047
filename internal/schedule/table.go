// Package schedule turns per-node intervention tables into campaign events,
// merging nodes that share a start day and settings.
package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Column names every table is keyed on.
const (
	ColumnNode     = "grid_cell"
	ColumnSimDay   = "simday"
	ColumnFullDate = "fulldate"
)

// DateLayout is the layout of the fulldate column.
const DateLayout = "2006-01-02"

var (
	// ErrMissingColumn is returned when a table lacks a required column.
	ErrMissingColumn = errors.New("missing column")
	// ErrUnknownKind is returned for an unrecognised table kind.
	ErrUnknownKind = errors.New("unknown table kind")
)

// Row is one node's entry in an intervention table.
type Row struct {
	Node   int
	SimDay float64
	Values map[string]float64
}

// Table is a parsed intervention table.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table has the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// LoadTable reads a CSV table from path. See ReadTable.
func LoadTable(path string, start time.Time) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f, start)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadTable parses a CSV table with a grid_cell column and either a simday
// column or a fulldate column, which is converted to a simulation day
// relative to start. Numeric columns become row values; other cells are
// skipped.
func ReadTable(r io.Reader, start time.Time) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		index[name] = i
	}

	nodeCol, ok := index[ColumnNode]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnNode)
	}
	dayCol, hasDay := index[ColumnSimDay]
	dateCol, hasDate := index[ColumnFullDate]
	if !hasDay && !hasDate {
		return Table{}, fmt.Errorf("%w: %s or %s", ErrMissingColumn, ColumnSimDay, ColumnFullDate)
	}
	if !hasDay && start.IsZero() {
		return Table{}, fmt.Errorf("table has only %s: a simulation start date is required", ColumnFullDate)
	}

	t := Table{Columns: header}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %w", line, err)
		}

		node, err := strconv.ParseFloat(strings.TrimSpace(rec[nodeCol]), 64)
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %s: %w", line, ColumnNode, err)
		}
		row := Row{Node: int(node), Values: make(map[string]float64, len(rec))}

		if hasDay {
			row.SimDay, err = strconv.ParseFloat(strings.TrimSpace(rec[dayCol]), 64)
			if err != nil {
				return Table{}, fmt.Errorf("line %d: %s: %w", line, ColumnSimDay, err)
			}
		} else {
			date, err := time.Parse(DateLayout, strings.TrimSpace(rec[dateCol]))
			if err != nil {
				return Table{}, fmt.Errorf("line %d: %s: %w", line, ColumnFullDate, err)
			}
			row.SimDay = float64(ConvertToDay365(date, start))
		}

		for i, cell := range rec {
			if i == nodeCol || i == dayCol && hasDay || i == dateCol && hasDate {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				row.Values[header[i]] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ConvertToDay365 returns the number of days from start to date on a
// calendar without leap days. February 29 counts as February 28.
func ConvertToDay365(date, start time.Time) int {
	return (date.Year()-start.Year())*365 + dayOfYear365(date) - dayOfYear365(start)
}

func dayOfYear365(t time.Time) int {
	day := t.YearDay()
	if isLeap(t.Year()) && t.YearDay() > 59 {
		day--
	}
	return day
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
