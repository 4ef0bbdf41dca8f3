package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/simpleab/pkg/config"
	"github.com/dmitrymomot/simpleab/pkg/logger"
	"github.com/dmitrymomot/simpleab/pkg/requestid"
	"github.com/dmitrymomot/simpleab/pkg/stub"
)

func buildServeCmd(flags *globalFlags) *cobra.Command {
	var (
		file   string
		addr   string
		apiKey string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory experimentation service for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.logger(cmd, logger.WithContextExtractors(requestid.LoggerExtractor()))
			if err != nil {
				return err
			}

			cfg, err := config.Load[stub.ServerConfig](config.WithOptionalEnvFiles(flags.envFile))
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			store := stub.NewStore()
			if file != "" {
				if store, err = stub.LoadFile(file); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch && file != "" {
				go func() {
					if err := stub.Watch(ctx, store, file, log); err != nil {
						log.ErrorContext(ctx, "fixture watch stopped", logger.Error(err))
					}
				}()
			}

			handler := stub.Handler(store, stub.WithAPIKey(apiKey), stub.WithHandlerLogger(log))
			return stub.NewServer(cfg, log).Run(ctx, handler)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture with experiments and segments")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the fixture file when it changes")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides STUB_ADDR)")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("SIMPLEAB_API_KEY"), "Required X-API-Key value; empty disables the check")
	return cmd
}
