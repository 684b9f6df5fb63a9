package engine

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// surveyCSV renders rows under the full header. Columns a row leaves out
// are filled with "No".
func surveyCSV(rows ...map[string]string) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(RequiredColumns, ","))
	b.WriteByte('\n')
	for _, r := range rows {
		vals := make([]string, len(RequiredColumns))
		for i, c := range RequiredColumns {
			v, ok := r[c]
			if !ok {
				v = "No"
			}
			vals[i] = v
		}
		b.WriteString(strings.Join(vals, ","))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func mustParse(t *testing.T, content []byte, opts Options) *Table {
	t.Helper()
	tbl, err := Parse(content, opts)
	require.NoError(t, err)
	return tbl
}

// loadSample parses testdata/sample.csv: 8 responses, one of them with an
// unparseable timestamp (row 5).
func loadSample(t *testing.T) *Table {
	t.Helper()
	content, err := os.ReadFile("testdata/sample.csv")
	require.NoError(t, err)
	return mustParse(t, content, Options{})
}

func column(t *testing.T, tbl *Table, col string) []string {
	t.Helper()
	out := make([]string, tbl.Len())
	for i := range out {
		v, _, err := tbl.Value(col, i)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}
