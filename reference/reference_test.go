package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLettersRoundTrip(t *testing.T) {
	cases := []struct {
		letters string
		number  int32
	}{
		{"A", 1},
		{"Z", 26},
		{"AA", 27},
		{"AZ", 52},
		{"ZZ", 702},
		{"XFD", LastColumn},
	}
	for _, c := range cases {
		n, err := ColumnLettersToNumber(c.letters)
		require.NoError(t, err)
		assert.Equal(t, c.number, n)

		letters, err := NumberToColumnLetters(c.number)
		require.NoError(t, err)
		assert.Equal(t, c.letters, letters)
	}
}

func TestColumnLettersToNumberInvalid(t *testing.T) {
	_, err := ColumnLettersToNumber("")
	assert.Error(t, err)
	_, err = ColumnLettersToNumber("1A")
	assert.Error(t, err)
}

func TestSplitCellLabel(t *testing.T) {
	col, row, absCol, absRow, err := SplitCellLabel("$C$4")
	require.NoError(t, err)
	assert.Equal(t, "C", col)
	assert.EqualValues(t, 4, row)
	assert.True(t, absCol)
	assert.True(t, absRow)

	col, row, absCol, absRow, err = SplitCellLabel("AA123")
	require.NoError(t, err)
	assert.Equal(t, "AA", col)
	assert.EqualValues(t, 123, row)
	assert.False(t, absCol)
	assert.False(t, absRow)

	_, _, _, _, err = SplitCellLabel("$$")
	assert.Error(t, err)
}

type fakeResolver struct {
	names []string
}

func (f fakeResolver) SheetIndex(name string) (int, bool) {
	for i, n := range f.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (f fakeResolver) SheetName(index int) (string, bool) {
	if index < 0 || index >= len(f.names) {
		return "", false
	}
	return f.names[index], true
}

func TestParseTextual(t *testing.T) {
	r := fakeResolver{names: []string{"Sheet1", "Sheet2"}}

	idx, err := ParseTextual("Sheet2!$C$4", 0, r)
	require.NoError(t, err)
	assert.Equal(t, Index{Sheet: 1, Row: 4, Column: 3}, idx)

	idx, err = ParseTextual("B2", 0, r)
	require.NoError(t, err)
	assert.Equal(t, Index{Sheet: 0, Row: 2, Column: 2}, idx)

	_, err = ParseTextual("Bogus!A1", 0, r)
	assert.Error(t, err)

	_, err = ParseTextual("A1048577", 0, r)
	assert.Error(t, err, "row past LastRow must fail")
}

func TestNormalizeIndexRange(t *testing.T) {
	a := Index{Sheet: 0, Row: 5, Column: 5}
	b := Index{Sheet: 0, Row: 1, Column: 1}
	r := NormalizeIndexRange(a, b)
	assert.Equal(t, Index{Sheet: 0, Row: 1, Column: 1}, r.Left)
	assert.Equal(t, Index{Sheet: 0, Row: 5, Column: 5}, r.Right)
}

func TestRangeContains(t *testing.T) {
	r := Range{Left: Index{Sheet: 0, Row: 1, Column: 1}, Right: Index{Sheet: 0, Row: 3, Column: 3}}
	assert.True(t, r.Contains(Index{Sheet: 0, Row: 2, Column: 2}))
	assert.False(t, r.Contains(Index{Sheet: 0, Row: 4, Column: 2}))
	assert.False(t, r.Contains(Index{Sheet: 1, Row: 2, Column: 2}))
}
