package bundling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/sanitization/docker"
)

// Asset is the handler's source plus the instructions to turn it into a deployable artifact.
type Asset struct {
	SourcePath string `yaml:"source_path"`
	Image      string `yaml:"image"`
	// Entry is the file the bundled output must contain for the handler to be loadable.
	Entry     string    `yaml:"entry,omitempty"`
	Steps     []Step    `yaml:"steps"`
	Toolchain Toolchain `yaml:"-"`
}

// NewAsset renders the toolchain's steps for the bundling container.
func NewAsset(sourcePath string, tc Toolchain) (Asset, error) {
	steps, err := tc.Steps(ContainerDirs)
	if err != nil {
		return Asset{}, err
	}
	return Asset{
		SourcePath: sourcePath,
		Image:      tc.Image,
		Steps:      steps,
		Toolchain:  tc,
	}, nil
}

// Command is the container command: every step joined with `&&` so that the first failing step
// aborts the rest.
func (a Asset) Command() []string {
	return []string{"bash", "-c", strings.Join(Commands(a.Steps), " && ")}
}

func (a Asset) Validate() error {
	var errs error
	if a.SourcePath == "" {
		errs = errors.Join(errs, errors.New("source path is empty"))
	}
	if err := docker.ImageReferenceValidator.Check(a.Image); err != nil {
		errs = errors.Join(errs, fmt.Errorf("image %q: %w", a.Image, err))
	}
	if err := ValidateSteps(a.Steps); err != nil {
		errs = errors.Join(errs, err)
	}
	return errs
}
