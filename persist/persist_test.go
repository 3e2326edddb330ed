package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type doc struct {
	Name   string    `bson:"name"`
	Values []float64 `bson:"values"`
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.bson")
	in := doc{Name: "games", Values: []float64{0.25, 0.5}}
	require.NoError(t, Save(path, in))

	var out doc
	require.NoError(t, Load(path, &out))
	require.Equal(t, in, out)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.bson")
	require.NoError(t, Save(path, doc{Name: "first"}))
	require.NoError(t, Save(path, doc{Name: "second"}))

	var out doc
	require.NoError(t, Load(path, &out))
	require.Equal(t, "second", out.Name)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	var out doc
	require.Error(t, Load(filepath.Join(dir, "missing.bson"), &out))

	garbage := filepath.Join(dir, "garbage.bson")
	require.NoError(t, os.WriteFile(garbage, []byte{1, 2, 3}, 0o644))
	require.Error(t, Load(garbage, &out))
}
