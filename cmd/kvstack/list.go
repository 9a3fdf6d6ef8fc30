package main

import (
	"github.com/klothoplatform/kvstack/pkg/stack"
	"github.com/klothoplatform/kvstack/pkg/visualizer"
	"github.com/spf13/cobra"
)

var listCfg struct {
	config string
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources in creation order with their edges",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.Flags().StringVarP(&listCfg.config, "config", "c", "", "Stack configuration file (yaml, toml or json)")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(listCfg.config)
	if err != nil {
		return err
	}
	s, err := stack.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	topology := &visualizer.Topology{AppName: cfg.Name, Provider: "aws", Graph: s.Graph}
	_, err = topology.WriteTo(cmd.OutOrStdout())
	return err
}
