package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/postgraph/internal/tracing"
	"github.com/dshills/postgraph/server"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the session API: create a post, stream its progress, answer review interrupts and publish.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var tracer trace.Tracer
		if on, _ := cmd.Flags().GetBool("trace"); on {
			tp := tracing.NewProvider(logger)
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				_ = tp.Shutdown(sctx)
			}()
			otel.SetTracerProvider(tp)
			tracer = tp.Tracer("postgraph")
		}

		a, err := buildApp(ctx, cfg, logger, tracer)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []server.Option{
			server.WithHistory(a.history),
			server.WithGatherer(a.registry),
			server.WithLogger(logger),
			server.WithRequestTimeout(cfg.Server.RequestTimeout),
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		}
		if a.oauth.Configured() {
			opts = append(opts, server.WithTokenExchanger(a.oauth))
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.New(a.service, opts...).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("graceful shutdown incomplete", "error", err)
				return srv.Close()
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default :8000)")
	serveCmd.Flags().Bool("trace", false, "Record engine events as OpenTelemetry spans in the log")
}
