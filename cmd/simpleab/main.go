// Package main is the simpleab command line tool.
//
// It runs a local stand-in for the experimentation service and lets you query
// assignments and segments from a shell:
//
//	simpleab serve --file experiments.yaml --api-key dev
//	simpleab assign exp1 user123 --stage Beta --dimension default --file experiments.yaml --explain
//	simpleab segment --ip 203.0.113.7 --user-agent "Mozilla/5.0 (iPhone)"
//	simpleab track exp1 clicks 1 --stage Beta --treatment T1
//
// Remote commands read SIMPLEAB_API_URL, SIMPLEAB_API_KEY and the other
// SIMPLEAB_* variables, optionally from a .env file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/simpleab/pkg/config"
	"github.com/dmitrymomot/simpleab/pkg/logger"
	"github.com/dmitrymomot/simpleab/pkg/simpleab"
	"github.com/dmitrymomot/simpleab/pkg/transport"
)

var (
	version = "dev"
	commit  = "none"
)

type globalFlags struct {
	logLevel  string
	logFormat string
	envFile   string
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "simpleab",
		Short:        "Experimentation SDK tooling",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Optional .env file with SIMPLEAB_* variables")

	rootCmd.AddCommand(
		buildServeCmd(flags),
		buildAssignCmd(flags),
		buildSegmentCmd(flags),
		buildTrackCmd(flags),
	)
	return rootCmd
}

func (g *globalFlags) logger(cmd *cobra.Command, opts ...logger.Option) (*slog.Logger, error) {
	level, err := logger.ParseLevel(g.logLevel)
	if err != nil {
		return nil, err
	}
	format := logger.Format(g.logFormat)
	if format != logger.FormatJSON && format != logger.FormatText {
		return nil, fmt.Errorf("invalid log format %q", g.logFormat)
	}
	return logger.New(append([]logger.Option{
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithService("simpleab"),
	}, opts...)...), nil
}

// remoteClient builds an SDK client talking to the service configured in the environment.
func (g *globalFlags) remoteClient(cmd *cobra.Command) (*simpleab.Client, *slog.Logger, error) {
	log, err := g.logger(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load[simpleab.Config](config.WithOptionalEnvFiles(g.envFile))
	if err != nil {
		return nil, nil, err
	}

	tr, err := transport.New(cfg, transport.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return simpleab.New(tr, simpleab.WithLogger(log)), log, nil
}

// commandContext returns cmd's context, which cobra leaves nil outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
