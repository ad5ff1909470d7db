package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookSave(t *testing.T) {
	path := NewWorkbook(t).
		Sheet("Cases").
		Headers(2).
		Row("TC-1", nil, "body").
		Cells(map[int]any{0: "TC-2", 3: 7}).
		Save()

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Cases"}, f.GetSheetList())

	v, err := f.GetCellValue("Cases", "A1")
	require.NoError(t, err)
	assert.Equal(t, "header 1", v)

	v, err = f.GetCellValue("Cases", "C3")
	require.NoError(t, err)
	assert.Equal(t, "body", v)

	v, err = f.GetCellValue("Cases", "B3")
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = f.GetCellValue("Cases", "D4")
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}
