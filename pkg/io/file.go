package io

import (
	"io"
	"os"
	"path/filepath"

	"github.com/klothoplatform/kvstack/pkg/closenicely"
)

type (
	File interface {
		Path() string
		WriteTo(io.Writer) (int64, error)
		Clone() File
	}

	// NonOverwritable files decide whether an existing file at their path is replaced.
	NonOverwritable interface {
		Overwrite(existing *os.File) bool
	}

	// RawFile represents a file with its included `Content` in case the caller needs to read/manipulate it.
	// If the content is not needed except to `WriteTo`, then try using [FileRef] instead.
	RawFile struct {
		FPath   string
		Content []byte
	}

	// FileRef is a lightweight representation of a file, deferring reading its contents until `WriteTo` is called.
	FileRef struct {
		FPath string
		// SourcePath is where the content is read from. Empty means `FPath` relative to the working directory.
		SourcePath string
	}
)

func (r *RawFile) Clone() File {
	nf := &RawFile{
		FPath: r.FPath,
	}
	nf.Content = make([]byte, len(r.Content))
	copy(nf.Content, r.Content)
	return nf
}

func (r *RawFile) Path() string {
	return r.FPath
}

func (r *RawFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Content)
	return int64(n), err
}

func (r *FileRef) Clone() File {
	nf := *r
	return &nf
}

func (r *FileRef) Path() string {
	return r.FPath
}

func (r *FileRef) WriteTo(w io.Writer) (int64, error) {
	src := r.SourcePath
	if src == "" {
		src = r.FPath
	}
	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return 0, err
	}
	defer closenicely.OrDebug(f)
	return io.Copy(w, f)
}
