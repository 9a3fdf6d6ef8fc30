package bundling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/closenicely"
)

// StepsFunc renders the build steps for a set of directories.
type StepsFunc func(Dirs) ([]Step, error)

// LocalRunner runs the build steps with the host's shell against a scratch copy of the source.
type LocalRunner struct {
	// Shell defaults to bash.
	Shell    string
	Executor Executor
}

func (r LocalRunner) Bundle(ctx context.Context, asset Asset, outDir string) error {
	return r.Run(ctx, asset.SourcePath, outDir, asset.Toolchain.Steps, asset.Entry)
}

// Run copies `src` into a scratch directory, runs the steps rendered by `steps` and promotes the
// output to `outDir` only if every step succeeded.
func (r LocalRunner) Run(ctx context.Context, src, outDir string, steps StepsFunc, entry string) error {
	shell := r.Shell
	if shell == "" {
		shell = "bash"
	}
	executor := r.Executor
	if executor == nil {
		executor = LoggingExecutor{}
	}
	if err := checkReplaceable(outDir); err != nil {
		return err
	}

	work, err := os.MkdirTemp("", "kvstack-bundle-")
	if err != nil {
		return err
	}
	defer closenicely.RemoveAllOrDebug(work)

	dirs := Dirs{
		Input:  filepath.Join(work, "input"),
		Output: filepath.Join(work, "output"),
		Temp:   filepath.Join(work, "tmp"),
	}
	srcEntries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("could not read source %s: %w", src, err)
	}
	if len(srcEntries) == 0 {
		return fmt.Errorf("%s: %w", src, ErrNoSourceFiles)
	}
	if err := os.CopyFS(dirs.Input, os.DirFS(src)); err != nil {
		return fmt.Errorf("could not copy source %s: %w", src, err)
	}
	for _, d := range []string{dirs.Output, dirs.Temp} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}

	rendered, err := steps(dirs)
	if err != nil {
		return err
	}
	err = executor.Exec(ctx, Cmd{
		Name: shell,
		Args: []string{"-c", strings.Join(Commands(rendered), " && ")},
		Dir:  work,
	})
	if err != nil {
		return err
	}
	return promote(ctx, dirs.Output, outDir, entry)
}
