package bundling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klothoplatform/kvstack/pkg/closenicely"
	"github.com/klothoplatform/kvstack/pkg/logging"
	"go.uber.org/zap"
)

// BundleMarker is written into every promoted output directory. A non-empty directory without it is
// never replaced.
const BundleMarker = ".kvstack-bundle"

var (
	ErrEmptyOutput     = errors.New("bundling produced no output")
	ErrMissingEntry    = errors.New("bundled output does not contain the entry artifact")
	ErrNoSourceFiles   = errors.New("source directory is empty")
	ErrOutputNotBundle = errors.New("output directory is not empty and does not hold a previous bundle")
)

// Runner executes an asset's build steps and leaves the artifact in `outDir`. On any failure `outDir`
// is left untouched.
type Runner interface {
	Bundle(ctx context.Context, asset Asset, outDir string) error
}

// checkReplaceable fails unless `outDir` is missing, empty or a previous bundle.
func checkReplaceable(outDir string) error {
	entries, err := os.ReadDir(outDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("could not read output directory: %w", err)
	case len(entries) == 0:
		return nil
	}
	if _, err := os.Stat(filepath.Join(outDir, BundleMarker)); err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", outDir, ErrOutputNotBundle)
}

// promote checks the staged output is non-empty and contains `entry`, then swaps it in for `outDir`.
// The output is assembled next to `outDir` and moved into place with a rename, so `outDir` holds either
// the previous bundle or the complete new one.
func promote(ctx context.Context, staging, outDir, entry string) error {
	log := logging.GetLogger(ctx).Named("bundling")

	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("could not read staged output: %w", err)
	}
	if len(entries) == 0 {
		return ErrEmptyOutput
	}
	if entry != "" {
		matches, err := doublestar.Glob(os.DirFS(staging), "**/"+entry)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingEntry, entry)
		}
	}
	if err := checkReplaceable(outDir); err != nil {
		return err
	}

	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return err
	}
	swap, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+"-")
	if err != nil {
		return fmt.Errorf("could not create promotion directory: %w", err)
	}
	defer closenicely.RemoveAllOrDebug(swap)

	next := filepath.Join(swap, "next")
	if err := os.Rename(staging, next); err != nil {
		// Staging may be on a different filesystem, fall back to copying.
		log.Debug("rename failed, copying staged output", zap.Error(err))
		if err := os.CopyFS(next, os.DirFS(staging)); err != nil {
			return fmt.Errorf("could not copy staged output next to %s: %w", outDir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(next, BundleMarker), nil, 0644); err != nil {
		return err
	}

	previous := filepath.Join(swap, "previous")
	hadPrevious := true
	if err := os.Rename(outDir, previous); errors.Is(err, fs.ErrNotExist) {
		hadPrevious = false
	} else if err != nil {
		return fmt.Errorf("could not move previous bundle aside: %w", err)
	}
	if err := os.Rename(next, outDir); err != nil {
		if hadPrevious {
			err = errors.Join(err, os.Rename(previous, outDir))
		}
		return fmt.Errorf("could not promote bundle to %s: %w", outDir, err)
	}
	log.Info("bundled artifact", zap.String("output", outDir), zap.Int("entries", len(entries)), zap.Bool("replaced", hadPrevious))
	return nil
}
