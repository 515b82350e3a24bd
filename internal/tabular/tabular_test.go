package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseString_Basic(t *testing.T) {
	recs, err := ParseString("a,b,c\nd,e\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"a", "b", "c"}, recs[0])
	assert.Equal(t, Record{"d", "e"}, recs[1])
}

func TestParseString_EscapedComma(t *testing.T) {
	recs, err := ParseString(`a\,b,c`)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, Record{"a,b", "c"}, recs[0])
}

func TestParseString_BackslashBeforeNonComma(t *testing.T) {
	// Only \, is an escape; any other backslash is a literal character.
	recs, err := ParseString(`a\b,c`)
	require.NoError(t, err)
	assert.Equal(t, Record{`a\b`, "c"}, recs[0])
}

func TestParseString_TrailingBackslash(t *testing.T) {
	_, err := ParseString("ok,line\nbad\\")
	require.Error(t, err)
	var serr *SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Line)
}

func TestParseString_SkipsEmptyLines(t *testing.T) {
	recs, err := ParseString("\n\na,b\n\nc\n\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"a", "b"}, recs[0])
	assert.Equal(t, Record{"c"}, recs[1])
}

func TestParseString_CRLF(t *testing.T) {
	recs, err := ParseString("a,b\r\nc,d\r\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"a", "b"}, recs[0])
	assert.Equal(t, Record{"c", "d"}, recs[1])
}

func TestParseString_EmptyFields(t *testing.T) {
	recs, err := ParseString(",a,\n")
	require.NoError(t, err)
	assert.Equal(t, Record{"", "a", ""}, recs[0])
}

func TestScanner_Restartable(t *testing.T) {
	const input = "a,b\nc,d\n"

	first := NewScanner(strings.NewReader(input))
	var got1 []Record
	for first.Next() {
		got1 = append(got1, first.Record())
	}
	require.NoError(t, first.Err())

	second := NewScanner(strings.NewReader(input))
	var got2 []Record
	for second.Next() {
		got2 = append(got2, second.Record())
	}
	require.NoError(t, second.Err())

	assert.Equal(t, got1, got2)
}

func TestScanner_LineNumbersCountBlanks(t *testing.T) {
	sc := NewScanner(strings.NewReader("\na,b\n\nc,d\n"))
	require.True(t, sc.Next())
	assert.Equal(t, 2, sc.Line())
	require.True(t, sc.Next())
	assert.Equal(t, 4, sc.Line())
	assert.False(t, sc.Next())
	assert.NoError(t, sc.Err())
}
