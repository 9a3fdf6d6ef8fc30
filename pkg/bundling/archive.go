package bundling

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klothoplatform/kvstack/pkg/closenicely"
)

// zipEpoch is the earliest time representable in a zip header. Every entry uses it so that the same
// input always produces the same bytes.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Archive zips every regular file under `dir` except the BundleMarker into `dest` and returns the hex sha256 of the archive.
// Entries are sorted and timestamps fixed, so the hash only changes when the content does.
func Archive(dir, dest string) (string, error) {
	fsys := os.DirFS(dir)
	var files []string
	err := doublestar.GlobWalk(fsys, "**", func(path string, d fs.DirEntry) error {
		if d.Type().IsRegular() && path != BundleMarker {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("could not list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrEmptyOutput)
	}
	sort.Strings(files)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	sum := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(out, sum))
	for _, path := range files {
		if err := addToZip(zw, fsys, path); err != nil {
			return "", fmt.Errorf("could not add %s to archive: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), out.Close()
}

func addToZip(zw *zip.Writer, fsys fs.FS, path string) error {
	info, err := fs.Stat(fsys, path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = path
	header.Method = zip.Deflate
	header.Modified = zipEpoch
	header.SetMode(info.Mode().Perm())

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer closenicely.OrDebug(f)
	_, err = io.Copy(w, f)
	return err
}
