package main

import (
	"fmt"

	"github.com/klothoplatform/kvstack/pkg/stack"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var bundleCfg struct {
	config     string
	outDir     string
	docker     bool
	dockerArgs string
}

func newBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Run the handler's build sequence only",
		Args:  cobra.NoArgs,
		RunE:  runBundle,
	}
	flags := cmd.Flags()
	flags.StringVarP(&bundleCfg.config, "config", "c", "", "Stack configuration file (yaml, toml or json)")
	flags.StringVarP(&bundleCfg.outDir, "output-dir", "o", "out/bundle", "Directory the bundled handler is written to")
	flags.BoolVar(&bundleCfg.docker, "docker", false, "Bundle inside the toolchain's container image")
	flags.StringVar(&bundleCfg.dockerArgs, "docker-args", "", "Extra arguments for `docker run`, shell quoted")
	return cmd
}

func runBundle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runner, err := runnerFor(bundleCfg.docker, bundleCfg.dockerArgs)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(bundleCfg.config)
	if err != nil {
		return err
	}
	s, err := stack.Build(ctx, cfg)
	if err != nil {
		return err
	}
	if err := runner.Bundle(ctx, s.Compute.Code, bundleCfg.outDir); err != nil {
		return errors.Wrapf(err, "could not bundle %s", s.Compute.Name)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "bundled %s into %s\n", s.Compute.Name, bundleCfg.outDir)
	return err
}
