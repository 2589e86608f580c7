package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voice-features-go/internal/api"
	"voice-features-go/internal/errs"
	"voice-features-go/internal/pipeline"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP batch endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := ctx.logger()
			log.Info("starting service")

			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			deps := api.Deps{CORSOrigins: cfg.CORSOrigins, Log: log}
			if err := cfg.Validate(); err != nil {
				// keep serving so callers get a structured configuration error
				log.WithError(err).Error("service is not configured")
				deps.SetupErr = err
			} else {
				svc, err := pipeline.FromConfig(cmd.Context(), cfg, log)
				if err != nil {
					log.WithError(err).Error("pipeline setup failed")
					deps.SetupErr = errs.Wrap(err, errs.Config, "pipeline setup failed")
				} else {
					defer svc.Close()
					deps.Runner = svc
					if svc.Journal != nil {
						deps.Batches = svc.Journal
					}
				}
			}

			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           api.NewRouter(deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-sigCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.WithError(err).Warn("shutdown incomplete")
				}
			}()

			log.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
}
