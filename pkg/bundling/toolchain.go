package bundling

import (
	"fmt"

	"github.com/klothoplatform/kvstack/pkg/templateutils"
)

type (
	// Dirs are the directories the steps are rendered against.
	Dirs struct {
		Input  string
		Output string
		// Temp is a writable scratch location for tool state.
		Temp string
	}

	// Toolchain describes how to turn a source directory into a deployable archive. Every string
	// field except Name and Image is a text/template (with sprig functions) rendered against the
	// Dirs and the other fields.
	Toolchain struct {
		Name  string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
		Image string `json:"image,omitempty" yaml:"image,omitempty" toml:"image,omitempty"`

		ToolHomeVar string `json:"tool_home_var,omitempty" yaml:"tool_home_var,omitempty" toml:"tool_home_var,omitempty"`
		ToolHome    string `json:"tool_home,omitempty" yaml:"tool_home,omitempty" toml:"tool_home,omitempty"`
		ToolBin     string `json:"tool_bin,omitempty" yaml:"tool_bin,omitempty" toml:"tool_bin,omitempty"`
		Install     string `json:"install,omitempty" yaml:"install,omitempty" toml:"install,omitempty"`
		Archive     string `json:"archive,omitempty" yaml:"archive,omitempty" toml:"archive,omitempty"`
		Package     string `json:"package,omitempty" yaml:"package,omitempty" toml:"package,omitempty"`
		Unpack      string `json:"unpack,omitempty" yaml:"unpack,omitempty" toml:"unpack,omitempty"`
	}
)

// ContainerDirs is the layout inside the bundling image: source mounted at /asset-input and the
// artifact collected from /asset-output.
var ContainerDirs = Dirs{
	Input:  "/asset-input",
	Output: "/asset-output",
	Temp:   "/tmp",
}

var DotnetLambdaTools = Toolchain{
	Name:        "dotnet-lambda",
	Image:       "public.ecr.aws/sam/build-dotnetcore3.1",
	ToolHomeVar: "DOTNET_CLI_HOME",
	ToolHome:    "{{ .Temp }}/DOTNET_CLI_HOME",
	ToolBin:     "{{ .ToolHome }}/.dotnet/tools",
	Install:     "dotnet tool install -g Amazon.Lambda.Tools",
	Archive:     "output.zip",
	Package:     "dotnet lambda package -o {{ shellArg .Archive }}",
	Unpack:      "unzip -o -d {{ shellArg .Output }} {{ shellArg .Archive }}",
}

// Steps renders the toolchain into the ordered build steps for the given directories.
func (tc Toolchain) Steps(dirs Dirs) ([]Step, error) {
	data := map[string]string{
		"Input":       dirs.Input,
		"Output":      dirs.Output,
		"Temp":        dirs.Temp,
		"ToolHomeVar": tc.ToolHomeVar,
	}
	// Later fields may refer to earlier ones, so render them in dependency order.
	for _, f := range []struct {
		key  string
		text string
	}{
		{"ToolHome", tc.ToolHome},
		{"ToolBin", tc.ToolBin},
		{"Archive", tc.Archive},
	} {
		v, err := templateutils.Execute(tc.Name+"."+f.key, f.text, data)
		if err != nil {
			return nil, fmt.Errorf("could not render %s of toolchain %s: %w", f.key, tc.Name, err)
		}
		data[f.key] = v
	}

	templates := []struct {
		kind StepKind
		text string
	}{
		{EnterInput, "cd {{ shellArg .Input }}"},
		{RelocateHome, `export {{ .ToolHomeVar }}="{{ .ToolHome }}"`},
		{ExtendPath, `export PATH="$PATH:{{ .ToolBin }}"`},
		{InstallTool, tc.Install},
		{Package, tc.Package},
		{Unpack, tc.Unpack},
	}
	steps := make([]Step, 0, len(templates))
	for _, t := range templates {
		cmd, err := templateutils.Execute(tc.Name+"."+string(t.kind), t.text, data)
		if err != nil {
			return nil, fmt.Errorf("could not render %s step of toolchain %s: %w", t.kind, tc.Name, err)
		}
		steps = append(steps, Step{Kind: t.kind, Command: cmd})
	}
	return steps, nil
}

// Toolchains are the toolchains selectable by name.
var Toolchains = map[string]Toolchain{
	DotnetLambdaTools.Name: DotnetLambdaTools,
}

// Merge returns `tc` with every non-empty field of `other` applied on top.
func (tc Toolchain) Merge(other Toolchain) Toolchain {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&tc.Name, other.Name},
		{&tc.Image, other.Image},
		{&tc.ToolHomeVar, other.ToolHomeVar},
		{&tc.ToolHome, other.ToolHome},
		{&tc.ToolBin, other.ToolBin},
		{&tc.Install, other.Install},
		{&tc.Archive, other.Archive},
		{&tc.Package, other.Package},
		{&tc.Unpack, other.Unpack},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	return tc
}
