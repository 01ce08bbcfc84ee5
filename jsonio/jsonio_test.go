package jsonio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/jsonio"
)

func TestDecodeRejectsMissingName(t *testing.T) {
	raw := []byte(`{"worksheets":[{"name":"Sheet1","sheet_data":{}}]}`)
	_, err := jsonio.Decode(raw)
	assert.Error(t, err)
}

func TestDecodeRejectsEmptyWorksheets(t *testing.T) {
	raw := []byte(`{"name":"book","worksheets":[]}`)
	_, err := jsonio.Decode(raw)
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := jsonio.Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLoadBuildsWorkbookWithSharedStringsAndFormula(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"shared_strings": ["hello"],
		"worksheets": [{
			"name": "Sheet1",
			"shared_formulas": ["R[0]C[-1]+1"],
			"sheet_data": {
				"1": {
					"1": {"type": "number", "number": 41},
					"2": {"type": "formula_pending", "formula_index": 0},
					"3": {"type": "shared_string", "string_index": 0}
				}
			}
		}]
	}`)

	wb, err := jsonio.Load(raw)
	require.NoError(t, err)

	sheet := wb.Sheet(0)
	require.NotNil(t, sheet)
	assert.Equal(t, "Sheet1", sheet.Name)

	a1 := sheet.Get(1, 1)
	assert.Equal(t, 41.0, a1.Number)

	b1 := sheet.Get(1, 2)
	require.True(t, b1.IsFormula())
	text, ok := sheet.SharedFormulaText(b1.FormulaIndex)
	require.True(t, ok)
	assert.Equal(t, "R[0]C[-1]+1", text)

	c1 := sheet.Get(1, 3)
	str, ok := wb.String(c1.StringID)
	require.True(t, ok)
	assert.Equal(t, "hello", str)
}

func TestLoadRejectsNonNumericSheetDataKey(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"worksheets": [{
			"name": "Sheet1",
			"sheet_data": {"bogus": {"1": {"type": "number", "number": 1}}}
		}]
	}`)
	_, err := jsonio.Load(raw)
	assert.Error(t, err)
}

func TestLoadResolvesEnglishErrorKindByDefault(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"worksheets": [{
			"name": "Sheet1",
			"sheet_data": {"1": {"1": {"type": "error", "error_kind": "#VALUE!"}}}
		}]
	}`)
	wb, err := jsonio.Load(raw)
	require.NoError(t, err)
	cell := wb.Sheet(0).Get(1, 1)
	assert.Equal(t, calcresult.ErrValue, cell.ErrKind)
}

func TestLoadResolvesLocalizedErrorKindAgainstDeclaredLocale(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"settings": {"locale": "de-DE"},
		"worksheets": [{
			"name": "Sheet1",
			"sheet_data": {"1": {"1": {"type": "error", "error_kind": "#WERT!"}}}
		}]
	}`)
	wb, err := jsonio.Load(raw)
	require.NoError(t, err)
	cell := wb.Sheet(0).Get(1, 1)
	assert.Equal(t, calcresult.ErrValue, cell.ErrKind)
}

func TestLoadRejectsUnknownErrorKind(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"worksheets": [{
			"name": "Sheet1",
			"sheet_data": {"1": {"1": {"type": "error", "error_kind": "#BOGUS!"}}}
		}]
	}`)
	_, err := jsonio.Load(raw)
	assert.Error(t, err)
}

func TestLoadAppliesRowAndColStyles(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"worksheets": [{
			"name": "Sheet1",
			"sheet_data": {},
			"row_styles": {"2": 5},
			"col_styles": {"3": 7}
		}]
	}`)
	wb, err := jsonio.Load(raw)
	require.NoError(t, err)
	sheet := wb.Sheet(0)
	assert.Equal(t, uint32(5), sheet.RowStyles[2])
	assert.Equal(t, uint32(7), sheet.ColStyles[3])
}

func TestLoadDefinesWorkbookAndSheetScopedNames(t *testing.T) {
	raw := []byte(`{
		"name": "book",
		"worksheets": [{"name": "Sheet1", "sheet_data": {}}],
		"defined_names": [
			{"name": "Total", "formula": "A1"},
			{"name": "Local", "formula": "B1", "sheet_id": 0}
		]
	}`)
	wb, err := jsonio.Load(raw)
	require.NoError(t, err)

	_, ok := wb.LookupName("Total", 0)
	assert.True(t, ok)
	_, ok = wb.LookupName("Local", 0)
	assert.True(t, ok)
}
