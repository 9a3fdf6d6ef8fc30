package bundling

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"
)

var ErrNoProject = errors.New("no .csproj found")

// Project is what InspectProject reads out of a .NET project file.
type Project struct {
	File            string
	AssemblyName    string
	TargetFramework string
}

// InspectProject finds the single .csproj in `dir` and reads the assembly name and target framework.
// The assembly name defaults to the project file's name, as msbuild does.
func InspectProject(dir string) (*Project, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "*.csproj")
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w in %s", ErrNoProject, dir)
	case 1:
	default:
		return nil, fmt.Errorf("multiple project files in %s: %s", dir, strings.Join(matches, ", "))
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filepath.Join(dir, matches[0])); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", matches[0], err)
	}
	root := doc.SelectElement("Project")
	if root == nil {
		return nil, fmt.Errorf("%s has no Project element", matches[0])
	}

	p := &Project{
		File:         matches[0],
		AssemblyName: strings.TrimSuffix(path.Base(matches[0]), ".csproj"),
	}
	for _, group := range root.SelectElements("PropertyGroup") {
		if e := group.SelectElement("AssemblyName"); e != nil && strings.TrimSpace(e.Text()) != "" {
			p.AssemblyName = strings.TrimSpace(e.Text())
		}
		if e := group.SelectElement("TargetFramework"); e != nil && strings.TrimSpace(e.Text()) != "" {
			p.TargetFramework = strings.TrimSpace(e.Text())
		}
	}
	return p, nil
}

// EntryArtifact is the assembly the Lambda runtime loads for this project.
func (p Project) EntryArtifact() string {
	return p.AssemblyName + ".dll"
}
