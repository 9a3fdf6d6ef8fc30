package main

import (
	"os"

	"github.com/klothoplatform/kvstack/pkg/closenicely"
	"github.com/klothoplatform/kvstack/pkg/stack"
	"github.com/klothoplatform/kvstack/pkg/visualizer"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var graphCfg struct {
	config string
	format string
	open   bool
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the resource graph",
		Args:  cobra.NoArgs,
		RunE:  runGraph,
	}
	flags := cmd.Flags()
	flags.StringVarP(&graphCfg.config, "config", "c", "", "Stack configuration file (yaml, toml or json)")
	flags.StringVar(&graphCfg.format, "format", "dot", "Graph format: dot, mermaid or svg")
	flags.BoolVar(&graphCfg.open, "open", false, "Open the rendered svg in a browser instead of printing it")
	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	format, err := visualizer.ParseFormat(graphCfg.format)
	if err != nil {
		return err
	}
	if graphCfg.open && format != visualizer.FormatSVG {
		return errors.Errorf("--open requires --format %s", visualizer.FormatSVG)
	}
	cfg, err := loadConfig(graphCfg.config)
	if err != nil {
		return err
	}
	s, err := stack.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	gen := visualizer.Generator{Format: format}
	if !graphCfg.open {
		return gen.Generate(cmd.Context(), s.Graph, cmd.OutOrStdout())
	}

	f, err := os.CreateTemp("", s.Name+"-graph-*.svg")
	if err != nil {
		return err
	}
	err = gen.Generate(cmd.Context(), s.Graph, f)
	closenicely.OrDebug(f)
	if err != nil {
		return err
	}
	return browser.OpenFile(f.Name())
}
