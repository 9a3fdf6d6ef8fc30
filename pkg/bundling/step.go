package bundling

import (
	"errors"
	"fmt"
)

type StepKind string

const (
	// EnterInput changes into the source directory. Every later step runs relative to it.
	EnterInput StepKind = "enter-input"
	// RelocateHome points the tool's install location at a writable temp path.
	RelocateHome StepKind = "relocate-home"
	// ExtendPath adds the relocated tool directory to PATH.
	ExtendPath  StepKind = "extend-path"
	InstallTool StepKind = "install-tool"
	// Package produces the archive in the input directory.
	Package StepKind = "package"
	// Unpack extracts the archive into the output directory.
	Unpack StepKind = "unpack"
)

// StepOrder is the only order in which the steps produce a valid artifact. Each step relies on the
// filesystem or environment state the previous ones left behind.
var StepOrder = []StepKind{EnterInput, RelocateHome, ExtendPath, InstallTool, Package, Unpack}

type Step struct {
	Kind    StepKind `yaml:"kind" json:"kind"`
	Command string   `yaml:"command" json:"command"`
}

func stepIndex(kind StepKind) int {
	for i, k := range StepOrder {
		if k == kind {
			return i
		}
	}
	return -1
}

// ValidateSteps checks that every kind of step appears exactly once and in StepOrder.
func ValidateSteps(steps []Step) error {
	var errs error
	seen := make(map[StepKind]bool, len(steps))
	last := -1
	var lastKind StepKind
	for i, step := range steps {
		idx := stepIndex(step.Kind)
		switch {
		case idx < 0:
			errs = errors.Join(errs, fmt.Errorf("step %d: unknown kind %q", i, step.Kind))
			continue
		case seen[step.Kind]:
			errs = errors.Join(errs, fmt.Errorf("step %d: duplicate %s", i, step.Kind))
			continue
		case idx < last:
			errs = errors.Join(errs, fmt.Errorf("step %d: %s must come before %s", i, step.Kind, lastKind))
		}
		if step.Command == "" {
			errs = errors.Join(errs, fmt.Errorf("step %d: %s has no command", i, step.Kind))
		}
		seen[step.Kind] = true
		if idx > last {
			last = idx
			lastKind = step.Kind
		}
	}
	for _, kind := range StepOrder {
		if !seen[kind] {
			errs = errors.Join(errs, fmt.Errorf("missing %s step", kind))
		}
	}
	return errs
}

func Commands(steps []Step) []string {
	cmds := make([]string, len(steps))
	for i, s := range steps {
		cmds[i] = s.Command
	}
	return cmds
}
