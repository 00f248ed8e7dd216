package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newTestFile(t *testing.T) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "records.json"))
}

func TestAppendAndLoad(t *testing.T) {
	f := newTestFile(t)

	err := f.Append([]any{record{ID: 1, Name: "a"}, record{ID: 2, Name: "b"}})
	require.NoError(t, err)

	var got []record
	require.NoError(t, f.Load(&got))
	require.Equal(t, []record{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, got)
}

func TestAppendToExistingArray(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append([]any{record{ID: 1, Name: "a"}}))
	require.NoError(t, f.Append([]any{record{ID: 2, Name: "b"}, record{ID: 3, Name: "c"}}))
	// An empty batch must not touch the file.
	require.NoError(t, f.Append(nil))

	var got []record
	require.NoError(t, f.Load(&got))
	require.Len(t, got, 3)
	require.Equal(t, record{ID: 3, Name: "c"}, got[2])
}

func TestLoadMissingFile(t *testing.T) {
	f := newTestFile(t)

	got := []record{{ID: 99}}
	require.NoError(t, f.Load(&got))
	// Untouched on missing file.
	require.Equal(t, []record{{ID: 99}}, got)
}

func TestLoadRepairsTruncatedArray(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Append([]any{record{ID: 1, Name: "a"}, record{ID: 2, Name: "b"}}))

	// Simulate a crash mid-write under a non-atomic writer: chop off the
	// closing bracket and part of the last record.
	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Path(), data[:len(data)-8], 0o644))

	var got []record
	require.NoError(t, f.Load(&got))
	require.Equal(t, []record{{ID: 1, Name: "a"}}, got)

	// The repaired array must be appendable again.
	require.NoError(t, f.Append([]any{record{ID: 3, Name: "c"}}))
	var after []record
	require.NoError(t, f.Load(&after))
	require.Equal(t, []record{{ID: 1, Name: "a"}, {ID: 3, Name: "c"}}, after)
}

func TestLoadRejectsGarbage(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, os.WriteFile(f.Path(), []byte("not json at all"), 0o644))

	var got []record
	require.Error(t, f.Load(&got))
}
