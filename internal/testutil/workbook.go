// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Workbook builds an xlsx fixture row by row.
type Workbook struct {
	t          *testing.T
	sheet      string
	headerRows int
	rows       [][]any
}

// NewWorkbook starts a workbook with a single sheet named Sheet1.
func NewWorkbook(t *testing.T) *Workbook {
	t.Helper()
	return &Workbook{t: t, sheet: "Sheet1"}
}

// Sheet renames the only sheet.
func (w *Workbook) Sheet(name string) *Workbook {
	w.sheet = name
	return w
}

// Headers fills column A of the first n rows with placeholder titles.
func (w *Workbook) Headers(n int) *Workbook {
	w.headerRows = n
	return w
}

// Row appends a data row; values map to columns A onwards and nil leaves a
// cell empty.
func (w *Workbook) Row(values ...any) *Workbook {
	w.rows = append(w.rows, values)
	return w
}

// Cells appends a data row with only the given zero-based columns set.
func (w *Workbook) Cells(cells map[int]any) *Workbook {
	width := 0
	for c := range cells {
		if c+1 > width {
			width = c + 1
		}
	}
	row := make([]any, width)
	for c, v := range cells {
		row[c] = v
	}
	return w.Row(row...)
}

// Save writes the workbook into a fresh temp dir and returns its path.
func (w *Workbook) Save() string {
	w.t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if w.sheet != "Sheet1" {
		require.NoError(w.t, f.SetSheetName("Sheet1", w.sheet))
	}
	for i := 1; i <= w.headerRows; i++ {
		require.NoError(w.t, f.SetCellValue(w.sheet, fmt.Sprintf("A%d", i), fmt.Sprintf("header %d", i)))
	}
	for r, row := range w.rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, w.headerRows+1+r)
			require.NoError(w.t, err)
			require.NoError(w.t, f.SetCellValue(w.sheet, ref, v))
		}
	}

	path := filepath.Join(w.t.TempDir(), "testcases.xlsx")
	require.NoError(w.t, f.SaveAs(path))
	return path
}
