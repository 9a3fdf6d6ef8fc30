package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/alitto/pond"
	"github.com/klothoplatform/kvstack/pkg/logging"
	"go.uber.org/zap"
)

// OutputTo writes `files` under `dest`, creating directories as needed. Existing files are truncated
// unless they are NonOverwritable and decline. The first failure cancels the files not yet written.
func OutputTo(ctx context.Context, files []File, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	log := logging.GetLogger(ctx).Named("io")

	pool := pond.New(runtime.GOMAXPROCS(0), len(files), pond.Strategy(pond.Lazy()))
	defer pool.StopAndWait()

	group, groupCtx := pool.GroupContext(ctx)
	for idx := range files {
		f := files[idx]
		group.Submit(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			n, err := writeFile(f, dest)
			if err != nil {
				return fmt.Errorf("could not write %s: %w", f.Path(), err)
			}
			if n >= 0 {
				log.Debug("Wrote file", zap.String("path", f.Path()), zap.Int64("bytes", n))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// writeFile returns the number of bytes written, or -1 if an existing file was kept.
func writeFile(f File, dest string) (int64, error) {
	path := filepath.Join(dest, f.Path())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	} else if err == nil {
		if ovr, ok := f.(NonOverwritable); ok && !ovr.Overwrite(file) {
			return -1, file.Close()
		}
		err = file.Truncate(0)
	}
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return 0, err
	}
	n, err := f.WriteTo(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return n, err
}
