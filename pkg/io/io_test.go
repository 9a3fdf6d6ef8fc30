package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keepExisting struct {
	RawFile
}

func (k *keepExisting) Overwrite(*os.File) bool {
	return false
}

func TestOutputTo(t *testing.T) {
	assert := assert.New(t)
	dest := t.TempDir()
	src := filepath.Join(t.TempDir(), "asset.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dest, "template.json"), []byte("a much longer previous template"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "kvstack.yaml"), []byte("user edits"), 0o644))

	files := []File{
		&RawFile{FPath: "template.json", Content: []byte("{}")},
		&RawFile{FPath: "nested/dir/resources.yaml", Content: []byte("resources: {}")},
		&FileRef{FPath: "assets/handler.zip", SourcePath: src},
		&keepExisting{RawFile{FPath: "kvstack.yaml", Content: []byte("generated")}},
	}
	for i := 0; i < 20; i++ {
		files = append(files, &RawFile{FPath: fmt.Sprintf("many/%d.txt", i), Content: []byte(fmt.Sprint(i))})
	}

	require.NoError(t, OutputTo(context.Background(), files, dest))

	read := func(p string) string {
		b, err := os.ReadFile(filepath.Join(dest, p))
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal("{}", read("template.json"), "existing files are truncated")
	assert.Equal("resources: {}", read("nested/dir/resources.yaml"))
	assert.Equal("zip", read("assets/handler.zip"))
	assert.Equal("user edits", read("kvstack.yaml"))
	assert.Equal("19", read("many/19.txt"))
}

func TestOutputTo_error(t *testing.T) {
	dest := t.TempDir()
	files := []File{
		&RawFile{FPath: "ok.txt", Content: []byte("ok")},
		&FileRef{FPath: "missing.zip", SourcePath: filepath.Join(t.TempDir(), "does-not-exist")},
	}

	err := OutputTo(context.Background(), files, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not write missing.zip")
}

func TestOutputTo_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := OutputTo(ctx, []File{&RawFile{FPath: "a.txt"}}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRawFile_Clone(t *testing.T) {
	f := &RawFile{FPath: "a", Content: []byte("abc")}
	clone := f.Clone().(*RawFile)
	clone.Content[0] = 'x'
	assert.Equal(t, "abc", string(f.Content))
}
