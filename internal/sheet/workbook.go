package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when a named sheet is absent or the workbook has none.
var ErrSheetNotFound = errors.New("sheet not found")

// Workbook is an opened spreadsheet.
type Workbook struct {
	f *excelize.File
}

// Open reads a workbook from r.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// OpenBytes reads a workbook already held in memory.
func OpenBytes(b []byte) (*Workbook, error) {
	return Open(bytes.NewReader(b))
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// SheetNames lists sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Resolve returns name if the workbook has it, or the first sheet when name is empty.
func (w *Workbook) Resolve(name string) (string, error) {
	sheets := w.f.GetSheetList()
	if name == "" {
		if len(sheets) == 0 {
			return "", ErrSheetNotFound
		}
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// Rows returns the typed cells of sheet starting after skip rows. Every row
// has exactly width cells; missing trailing cells are Empty. Rows keep sheet
// order, including blank ones.
func (w *Workbook) Rows(sheet string, skip, width int) ([][]Cell, error) {
	raw, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	if skip >= len(raw) {
		return [][]Cell{}, nil
	}

	out := make([][]Cell, 0, len(raw)-skip)
	for r := skip; r < len(raw); r++ {
		row := make([]Cell, width)
		for c := 0; c < width && c < len(raw[r]); c++ {
			cell, err := w.cell(sheet, c+1, r+1, raw[r][c])
			if err != nil {
				return nil, err
			}
			row[c] = cell
		}
		out = append(out, row)
	}
	return out, nil
}

// RowCount is the number of rows up to the last non-empty one.
func (w *Workbook) RowCount(sheet string) (int, error) {
	rows, err := w.f.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Error()
}

func (w *Workbook) cell(sheet string, col, row int, value string) (Cell, error) {
	if value == "" {
		return Empty(), nil
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}, err
	}
	typ, err := w.f.GetCellType(sheet, ref)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s: %w", ref, err)
	}
	return classify(typ, value), nil
}

func classify(typ excelize.CellType, value string) Cell {
	switch typ {
	case excelize.CellTypeBool:
		return Bool(value == "1" || strings.EqualFold(value, "true"))
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return Date(t)
		}
		if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
			return Date(t)
		}
		return Text(value)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return Number(f)
		}
		return Text(value)
	default:
		return Text(value)
	}
}
