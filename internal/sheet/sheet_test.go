package sheet

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFromSerial(t *testing.T) {
	got, ok := FromSerial(45306)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.January, 15), got)

	got, ok = FromSerial(45306.5)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.January, 15).Add(12*time.Hour), got)

	// Serial 61 is 1900-03-01 in the 1900 system; the epoch offset absorbs the phantom leap day.
	got, ok = FromSerial(61)
	require.True(t, ok)
	assert.Equal(t, day(1900, time.March, 1), got)

	for _, bad := range []float64{0, math.NaN(), math.Inf(1), math.Inf(-1), 1e12} {
		_, ok := FromSerial(bad)
		assert.False(t, ok, "%v", bad)
	}
}

func TestParseDate(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		cell Cell
		want time.Time
		ok   bool
	}{
		{"empty", Empty(), time.Time{}, false},
		{"zero number", Number(0), time.Time{}, false},
		{"blank text", Text("   "), time.Time{}, false},
		{"date passthrough", Date(fixed), fixed, true},
		{"serial", Number(45306), day(2024, time.January, 15), true},
		{"numeric text is a serial", Text("45306"), day(2024, time.January, 15), true},
		{"iso date", Text("2024-01-15"), day(2024, time.January, 15), true},
		{"rfc3339", Text("2024-03-01T09:30:00Z"), fixed, true},
		{"slash date", Text("2024/1/15"), day(2024, time.January, 15), true},
		{"us date", Text("01/15/2024"), day(2024, time.January, 15), true},
		{"month name", Text("Jan 15, 2024"), day(2024, time.January, 15), true},
		{"japanese", Text("2024年1月15日"), day(2024, time.January, 15), true},
		{"garbage", Text("next sprint"), time.Time{}, false},
		{"bool", Bool(true), time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.cell)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
			}
		})
	}
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", Empty().String())
	assert.Equal(t, "12", Number(12).String())
	assert.Equal(t, "1.5", Number(1.5).String())
	assert.Equal(t, " x ", Text(" x ").String())
	assert.Equal(t, "TRUE", Bool(true).String())
	assert.True(t, Text("  ").Blank())
	assert.False(t, Number(0).Blank())
	assert.Equal(t, "number", KindNumber.String())
}

func buildWorkbook(t *testing.T, fill func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	fill(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestWorkbookRows(t *testing.T) {
	data := buildWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "header"))
		require.NoError(t, f.SetCellValue("Sheet1", "A3", "TC-1"))
		require.NoError(t, f.SetCellValue("Sheet1", "B3", 45306))
		require.NoError(t, f.SetCellValue("Sheet1", "C3", true))
		require.NoError(t, f.SetCellValue("Sheet1", "A5", "TC-2"))
	})

	wb, err := OpenBytes(data)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.Rows("Sheet1", 2, 4)
	require.NoError(t, err)
	require.Len(t, rows, 3, "rows 3..5 including the blank row 4")

	for _, row := range rows {
		assert.Len(t, row, 4)
	}
	assert.Equal(t, KindText, rows[0][0].Kind())
	assert.Equal(t, "TC-1", rows[0][0].RawText())
	assert.Equal(t, KindNumber, rows[0][1].Kind())
	assert.Equal(t, 45306.0, rows[0][1].Float())
	assert.Equal(t, KindBool, rows[0][2].Kind())
	assert.True(t, rows[0][3].IsEmpty())
	assert.True(t, rows[1][0].IsEmpty())
	assert.Equal(t, "TC-2", rows[2][0].String())

	n, err := wb.RowCount("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	rows, err = wb.Rows("Sheet1", 10, 4)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWorkbookResolve(t *testing.T) {
	data := buildWorkbook(t, func(f *excelize.File) {
		_, err := f.NewSheet("Results")
		require.NoError(t, err)
	})
	wb, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	assert.Equal(t, []string{"Sheet1", "Results"}, wb.SheetNames())

	name, err := wb.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", name)

	name, err = wb.Resolve("Results")
	require.NoError(t, err)
	assert.Equal(t, "Results", name)

	_, err = wb.Resolve("Missing")
	require.ErrorIs(t, err, ErrSheetNotFound)
}

func TestOpenRejectsNonWorkbook(t *testing.T) {
	_, err := OpenBytes([]byte("not a zip"))
	require.Error(t, err)
}
