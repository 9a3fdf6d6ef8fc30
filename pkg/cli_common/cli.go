package clicommon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/klothoplatform/kvstack/pkg/closenicely"
	"github.com/klothoplatform/kvstack/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	Verbose   LevelledFlag
	JsonLog   bool
	Color     string
	ProfileTo string

	// Counter tallies the warnings and errors logged during the command.
	Counter logging.Counter
}

// noisyLoggers are quiet unless verbose is given twice.
var noisyLoggers = []string{"dot", "io", "cloudformation"}

func (cfg *CommonConfig) LogOpts() logging.LogOpts {
	opts := logging.LogOpts{
		Verbose: cfg.Verbose > 0,
		Color:   cfg.Color,
		Counter: &cfg.Counter,
	}
	if cfg.Verbose < 2 {
		opts.DefaultLevels = make(map[string]zapcore.Level, len(noisyLoggers))
		for _, name := range noisyLoggers {
			opts.DefaultLevels[name] = zap.WarnLevel
		}
	}
	if cfg.JsonLog {
		opts.Encoding = "json"
	}
	return opts
}

func setupProfiling(commonCfg *CommonConfig) (func(), error) {
	if commonCfg.ProfileTo == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(commonCfg.ProfileTo), 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	profileF, err := os.OpenFile(commonCfg.ProfileTo, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(profileF); err != nil {
		closenicely.OrDebug(profileF)
		return nil, fmt.Errorf("failed to start profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		closenicely.OrDebug(profileF)
	}, nil
}

// SetupRoot adds the logging and profiling flags to `root` and installs the global logger before any
// subcommand runs. Every entry of the invocation carries the same run id.
func SetupRoot(root *cobra.Command, commonCfg *CommonConfig) {
	flags := root.PersistentFlags()
	flags.VarP(&commonCfg.Verbose, "verbose", "v", "Enable verbose logging (repeat for more)")
	flags.Lookup("verbose").NoOptDefVal = "true"
	flags.BoolVar(&commonCfg.JsonLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&commonCfg.Color, "color", "auto", "Colorize output: auto, always or never")
	flags.StringVar(&commonCfg.ProfileTo, "profiling", "", "Profile to file")

	profileClose := func() {}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		z := commonCfg.LogOpts().NewLogger().With(logging.RunField())
		zap.ReplaceGlobals(z)
		cmd.SetContext(logging.WithLogger(cmd.Context(), z))

		var err error
		profileClose, err = setupProfiling(commonCfg)
		return err
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		zap.L().Sync() //nolint:errcheck

		profileClose()
	}
}
