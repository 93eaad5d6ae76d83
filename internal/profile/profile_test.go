package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfileCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drop.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProfilerProfile(t *testing.T) {
	path := writeProfileCSV(t, "id,name,amount\n1,alice,10.5\n2,bob,\n3,alice,7.25\n")

	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	got, err := p.Profile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, got.Path)
	assert.Equal(t, int64(3), got.Rows)
	require.Len(t, got.Columns, 3)

	id := got.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "BIGINT", id.Type)
	assert.Equal(t, int64(0), id.Nulls)
	assert.Equal(t, int64(3), id.Distinct)
	assert.Equal(t, "1", id.Min)
	assert.Equal(t, "3", id.Max)

	name := got.Columns[1]
	assert.Equal(t, "name", name.Name)
	assert.Equal(t, "VARCHAR", name.Type)
	assert.Equal(t, int64(0), name.Nulls)
	assert.Equal(t, int64(2), name.Distinct)
	assert.Equal(t, "alice", name.Min)
	assert.Equal(t, "bob", name.Max)

	amount := got.Columns[2]
	assert.Equal(t, "amount", amount.Name)
	assert.Equal(t, "DOUBLE", amount.Type)
	assert.Equal(t, int64(1), amount.Nulls)
	assert.Equal(t, int64(2), amount.Distinct)
}

func TestProfilerAllNullColumn(t *testing.T) {
	path := writeProfileCSV(t, "id,note\n1,\n2,\n")

	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	got, err := p.Profile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got.Columns, 2)

	note := got.Columns[1]
	assert.Equal(t, int64(2), note.Nulls)
	assert.Equal(t, int64(0), note.Distinct)
	assert.Empty(t, note.Min)
	assert.Empty(t, note.Max)
}

func TestProfilerMissingFile(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Profile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'a.csv'", quoteLiteral("a.csv"))
	assert.Equal(t, "'it''s.csv'", quoteLiteral("it's.csv"))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"name"`, quoteIdent("name"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
