package bundling

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestArchive(t *testing.T) {
	files := map[string]string{
		"DynamoDbLambda.dll":                     "dll",
		"DynamoDbLambda.runtimeconfig.json":      "{}",
		"runtimes/linux/lib/native/libsomething": "so",
	}

	first := writeTree(t, files)
	second := writeTree(t, files)
	// different modification times must not change the archive
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(second, "DynamoDbLambda.dll"), old, old))

	dest := t.TempDir()
	sum1, err := Archive(first, filepath.Join(dest, "first.zip"))
	require.NoError(t, err)
	sum2, err := Archive(second, filepath.Join(dest, "second.zip"))
	require.NoError(t, err)
	assert.Equal(t, sum1, sum2)
	assert.Len(t, sum1, 64)

	r, err := zip.OpenReader(filepath.Join(dest, "first.zip"))
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"DynamoDbLambda.dll",
		"DynamoDbLambda.runtimeconfig.json",
		"runtimes/linux/lib/native/libsomething",
	}, names)

	files["DynamoDbLambda.dll"] = "changed"
	sum3, err := Archive(writeTree(t, files), filepath.Join(dest, "third.zip"))
	require.NoError(t, err)
	assert.NotEqual(t, sum1, sum3)

	// a promoted bundle's marker is not part of the artifact
	marked := writeTree(t, map[string]string{"DynamoDbLambda.dll": "dll"})
	sumMarked, err := Archive(marked, filepath.Join(dest, "marked.zip"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(marked, BundleMarker), nil, 0644))
	sumMarked2, err := Archive(marked, filepath.Join(dest, "marked2.zip"))
	require.NoError(t, err)
	assert.Equal(t, sumMarked, sumMarked2)
}

func TestArchive_empty(t *testing.T) {
	_, err := Archive(t.TempDir(), filepath.Join(t.TempDir(), "out.zip"))
	assert.ErrorIs(t, err, ErrEmptyOutput)
}
