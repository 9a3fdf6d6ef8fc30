package bundling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klothoplatform/kvstack/pkg/closenicely"
	"github.com/klothoplatform/kvstack/pkg/sanitization/docker"
)

// DockerRunner runs the asset's command inside its bundling image with the source mounted at
// /asset-input and a staging directory mounted at /asset-output.
type DockerRunner struct {
	// Docker is the docker binary, defaults to `docker`.
	Docker   string
	Executor Executor
	// ExtraArgs are added to `docker run` before the image.
	ExtraArgs []string
}

func (r DockerRunner) Bundle(ctx context.Context, asset Asset, outDir string) error {
	bin := r.Docker
	if bin == "" {
		bin = "docker"
	}
	executor := r.Executor
	if executor == nil {
		executor = LoggingExecutor{}
	}

	if err := checkReplaceable(outDir); err != nil {
		return err
	}

	src, err := filepath.Abs(asset.SourcePath)
	if err != nil {
		return err
	}
	staging, err := os.MkdirTemp("", "kvstack-asset-output-")
	if err != nil {
		return err
	}
	defer closenicely.RemoveAllOrDebug(staging)

	name := docker.ContainerNameSanitizer.Apply(fmt.Sprintf("kvstack-bundle-%s-%s", asset.Toolchain.Name, uuid.NewString()[:8]))
	args := []string{
		"run", "--rm",
		"--name", name,
		"-v", src + ":" + ContainerDirs.Input + ":delegated",
		"-v", staging + ":" + ContainerDirs.Output + ":delegated",
		"-w", ContainerDirs.Input,
	}
	args = append(args, r.ExtraArgs...)
	args = append(args, asset.Image)
	args = append(args, asset.Command()...)

	if err := executor.Exec(ctx, Cmd{Name: bin, Args: args}); err != nil {
		return err
	}
	return promote(ctx, staging, outDir, asset.Entry)
}
