package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/klothoplatform/kvstack/pkg/bundling"
	"github.com/klothoplatform/kvstack/pkg/closenicely"
	"github.com/klothoplatform/kvstack/pkg/config"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/infra/cloudformation"
	kio "github.com/klothoplatform/kvstack/pkg/io"
	"github.com/klothoplatform/kvstack/pkg/logging"
	"github.com/klothoplatform/kvstack/pkg/stack"
	"github.com/klothoplatform/kvstack/pkg/visualizer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var synthCfg struct {
	config     string
	outDir     string
	format     string
	bundle     bool
	docker     bool
	dockerArgs string
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Build the stack and write its CloudFormation template",
		Args:  cobra.NoArgs,
		RunE:  runSynth,
	}
	flags := cmd.Flags()
	flags.StringVarP(&synthCfg.config, "config", "c", "", "Stack configuration file (yaml, toml or json)")
	flags.StringVarP(&synthCfg.outDir, "output-dir", "o", "out", "Output directory")
	flags.StringVar(&synthCfg.format, "format", "json", "Template format: json or yaml")
	flags.BoolVar(&synthCfg.bundle, "bundle", false, "Bundle the handler and include its archive")
	flags.BoolVar(&synthCfg.docker, "docker", false, "Bundle inside the toolchain's container image")
	flags.StringVar(&synthCfg.dockerArgs, "docker-args", "", "Extra arguments for `docker run`, shell quoted")
	return cmd
}

func runSynth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.GetLogger(ctx)

	cfg, err := loadConfig(synthCfg.config)
	if err != nil {
		return err
	}
	overrides, err := config.Overrides(cfg)
	if err != nil {
		return err
	}
	for _, o := range overrides {
		log.Info("Config override", zap.String("path", o.Path), zap.Any("default", o.From), zap.Any("value", o.To))
	}
	s, err := stack.Build(ctx, cfg)
	if err != nil {
		return err
	}

	var files []kio.File
	pluginCfg := &cloudformation.Config{
		Format:      synthCfg.format,
		Description: fmt.Sprintf("%s serverless key-value backend", cfg.Name),
	}
	if synthCfg.bundle {
		work, err := os.MkdirTemp("", "kvstack-synth-")
		if err != nil {
			return err
		}
		defer closenicely.RemoveAllOrDebug(work)

		runner, err := runnerFor(synthCfg.docker, synthCfg.dockerArgs)
		if err != nil {
			return err
		}
		asset, err := bundleAndArchive(ctx, runner, s, work)
		if err != nil {
			return err
		}
		pluginCfg.AssetKeys = map[construct.ResourceId]string{s.Compute.Id(): asset.FPath}
		files = append(files, asset)
	}

	tmplFiles, err := cloudformation.Plugin{Config: pluginCfg}.Translate(ctx, s.Graph)
	if err != nil {
		return errors.Wrap(err, "could not synthesize template")
	}
	files = append(files, tmplFiles...)
	files = append(files, &visualizer.Topology{AppName: cfg.Name, Provider: "aws", Graph: s.Graph})

	resolved := new(bytes.Buffer)
	if err := cfg.Encode(resolved, ""); err != nil {
		return errors.Wrap(err, "could not encode resolved config")
	}
	configExt := cfg.Format
	if configExt == "" {
		configExt = "yaml"
	}
	files = append(files, &kio.RawFile{FPath: "kvstack." + configExt, Content: resolved.Bytes()})

	if err := kio.OutputTo(ctx, files, synthCfg.outDir); err != nil {
		return errors.Wrap(err, "could not write output files")
	}
	log.Debug("Wrote output", zap.Strings("files", logging.FileNames(files)), zap.String("dir", synthCfg.outDir))

	return printSummary(cmd.OutOrStdout(), s)
}

// bundleAndArchive bundles the handler into `work` and zips it. The archive is named by its hash so that
// an unchanged handler keeps the same asset key.
func bundleAndArchive(ctx context.Context, runner bundling.Runner, s *stack.Stack, work string) (*kio.FileRef, error) {
	bundled := filepath.Join(work, "bundle")
	if err := runner.Bundle(ctx, s.Compute.Code, bundled); err != nil {
		return nil, errors.Wrapf(err, "could not bundle %s", s.Compute.Name)
	}
	archive := filepath.Join(work, "asset.zip")
	sum, err := bundling.Archive(bundled, archive)
	if err != nil {
		return nil, errors.Wrapf(err, "could not archive %s", s.Compute.Name)
	}
	return &kio.FileRef{
		FPath:      filepath.ToSlash(filepath.Join("assets", sum+".zip")),
		SourcePath: archive,
	}, nil
}

// runnerFor picks where the build steps run. `dockerArgs` is split like a shell would split it.
func runnerFor(useDocker bool, dockerArgs string) (bundling.Runner, error) {
	if !useDocker {
		if dockerArgs != "" {
			return nil, errors.New("--docker-args requires --docker")
		}
		return bundling.LocalRunner{}, nil
	}
	extra, err := shlex.Split(dockerArgs)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse --docker-args")
	}
	return bundling.DockerRunner{ExtraArgs: extra}, nil
}

func printSummary(w io.Writer, s *stack.Stack) error {
	sum, err := s.Summary()
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen, color.Bold)
	_, err = green.Fprintf(w, "%s: ", s.Name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d store, %d identities, %d compute, %d front door, %d routes, %d grants\n",
		sum.Stores, sum.Identities, sum.ComputeUnits, sum.FrontDoors, sum.Routes, sum.Grants)
	return err
}
