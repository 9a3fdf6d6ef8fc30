package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	clicommon "github.com/klothoplatform/kvstack/pkg/cli_common"
	"github.com/klothoplatform/kvstack/pkg/config"
	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var commonCfg clicommon.CommonConfig

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kvstack",
		Short:         "Declare, bundle and synthesize a serverless key-value backend",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	clicommon.SetupRoot(root, &commonCfg)

	root.AddCommand(newSynthCmd())
	root.AddCommand(newBundleCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// loadConfig reads `path` over the defaults, or returns the defaults when no path is given.
func loadConfig(path string) (config.Stack, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.ReadConfig(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "could not read config %s", path)
	}
	return cfg, nil
}

// errorJSON is the machine readable form of `err`: its tree plus the code and details of the first
// construction error found in it.
func errorJSON(err error) map[string]any {
	m := map[string]any{"error": construct.ErrorsToTree(err)}
	var cerr construct.ConstructionError
	if errors.As(err, &cerr) {
		for k, v := range cerr.ToJSONMap() {
			m[k] = v
		}
		m["error_code"] = cerr.ErrorCode()
	}
	return m
}

func printError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		if jerr := json.NewEncoder(w).Encode(errorJSON(err)); jerr == nil {
			return
		}
	}
	red := color.New(color.FgRed)
	red.Fprint(w, "Error: ") //nolint:errcheck
	fmt.Fprint(w, construct.ErrorsToTree(err).Error())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err, commonCfg.JsonLog)
		os.Exit(1)
	}
	if commonCfg.Counter.HadErrors() {
		os.Exit(1)
	}
}
