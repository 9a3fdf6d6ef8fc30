package cloudformation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

const TEMPLATE_FORMAT_VERSION = "2010-09-09"

type (
	Template struct {
		AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
		Description              string               `json:"Description,omitempty"`
		Parameters               map[string]Parameter `json:"Parameters,omitempty"`
		Resources                Resources            `json:"Resources"`
		Outputs                  map[string]Output    `json:"Outputs,omitempty"`
	}

	// Resources keeps the template's resources in the order they were added, which is the order they
	// are created in.
	Resources []NamedResource

	NamedResource struct {
		LogicalId string
		Resource  ResourceDef
	}

	ResourceDef struct {
		Type                string         `json:"Type"`
		DependsOn           []string       `json:"DependsOn,omitempty"`
		Properties          map[string]any `json:"Properties,omitempty"`
		DeletionPolicy      string         `json:"DeletionPolicy,omitempty"`
		UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty"`
	}

	Parameter struct {
		Type        string `json:"Type"`
		Description string `json:"Description,omitempty"`
		Default     any    `json:"Default,omitempty"`
	}

	Output struct {
		Description string `json:"Description,omitempty"`
		Value       any    `json:"Value"`
	}
)

func (rs Resources) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.LogicalId)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.Resource)
		if err != nil {
			return nil, fmt.Errorf("could not marshal resource %s: %w", r.LogicalId, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rs Resources) Get(logicalId string) (ResourceDef, bool) {
	for _, r := range rs {
		if r.LogicalId == logicalId {
			return r.Resource, true
		}
	}
	return ResourceDef{}, false
}

// LogicalIds returns the ids in creation order.
func (rs Resources) LogicalIds() []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.LogicalId
	}
	return ids
}

// Encode renders the template as "json" or "yaml". YAML is converted from the JSON form so that the
// intrinsic functions keep their JSON marshalling, with keys sorted within each mapping.
func (t *Template) Encode(format string) ([]byte, error) {
	content, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	switch format {
	case "json", "":
		return append(content, '\n'), nil
	case "yaml", "yml":
		return yaml.JSONToYAML(content)
	default:
		return nil, fmt.Errorf("unsupported template format %q", format)
	}
}
