package cloudformation

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/klothoplatform/kvstack/pkg/construct"
	kio "github.com/klothoplatform/kvstack/pkg/io"
	"github.com/klothoplatform/kvstack/pkg/logging"
	"github.com/klothoplatform/kvstack/pkg/provider/aws/resources"
	"go.uber.org/zap"
)

type (
	Config struct {
		// Format of the template file, "json" (the default) or "yaml".
		Format      string
		Description string
		// AssetKeys are the S3 keys the bundled code of each function was uploaded to. They become the
		// defaults of the functions' asset key parameters.
		AssetKeys map[construct.ResourceId]string
	}

	Plugin struct {
		Config *Config
	}
)

func (p Plugin) Name() string {
	return "cloudformation"
}

func (p Plugin) format() string {
	if p.Config == nil || p.Config.Format == "" {
		return "json"
	}
	return p.Config.Format
}

// Template renders the graph as a CloudFormation template. Resources are emitted in creation order, each
// identity's policy directly after the identity, and each API's deployment and stage after its methods.
func (p Plugin) Template(g construct.Graph) (*Template, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = &Config{}
	}
	ids, err := LogicalIdsFromGraph(g)
	if err != nil {
		return nil, err
	}
	if err := ids.claim(ASSET_BUCKET_PARAMETER, "parameter "+ASSET_BUCKET_PARAMETER); err != nil {
		return nil, err
	}

	t := &translator{
		g:      g,
		ids:    ids,
		config: cfg,
		template: &Template{
			AWSTemplateFormatVersion: TEMPLATE_FORMAT_VERSION,
			Description:              cfg.Description,
			Parameters: map[string]Parameter{
				ASSET_BUCKET_PARAMETER: {
					Type:        "String",
					Description: "S3 bucket holding the bundled function code",
				},
			},
			Outputs: make(map[string]Output),
		},
		policies: make(map[construct.ResourceId]string),
	}

	err = construct.WalkGraphReverse(g, func(id construct.ResourceId, _ construct.Resource, nerr error) error {
		if err := t.translate(id); err != nil {
			return errors.Join(nerr, fmt.Errorf("could not translate %s: %w", id, err))
		}
		return nerr
	})
	if err != nil {
		return nil, err
	}

	apis, err := construct.ResourcesOfType[*resources.RestApi](g)
	if err != nil {
		return nil, err
	}
	methods, err := construct.ResourcesOfType[*resources.ApiMethod](g)
	if err != nil {
		return nil, err
	}
	for _, api := range apis {
		var apiMethods []string
		for _, m := range methods {
			if m.RestApi != api.Id() {
				continue
			}
			name, err := ids.Get(m.Id())
			if err != nil {
				return nil, err
			}
			apiMethods = append(apiMethods, name)
		}
		if len(apiMethods) == 0 {
			return nil, fmt.Errorf("%s has no methods to deploy", api.Id())
		}
		if err := t.deployment(api, apiMethods); err != nil {
			return nil, err
		}
	}
	return t.template, nil
}

// Translate produces the template file and a YAML dump of the graph it was rendered from.
func (p Plugin) Translate(ctx context.Context, g construct.Graph) ([]kio.File, error) {
	log := logging.GetLogger(ctx).Named(p.Name())

	tmpl, err := p.Template(g)
	if err != nil {
		return nil, err
	}
	format := p.format()
	content, err := tmpl.Encode(format)
	if err != nil {
		return nil, err
	}

	graphYaml := new(bytes.Buffer)
	if err := construct.GraphToYAML(g, graphYaml); err != nil {
		return nil, fmt.Errorf("could not render graph: %w", err)
	}

	log.Debug("Rendered template",
		zap.Strings("resources", tmpl.Resources.LogicalIds()),
		zap.Int("parameters", len(tmpl.Parameters)),
		zap.Int("outputs", len(tmpl.Outputs)),
	)
	return []kio.File{
		&kio.RawFile{FPath: "template." + format, Content: content},
		&kio.RawFile{FPath: "resources.yaml", Content: graphYaml.Bytes()},
	}, nil
}
