package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/index"
	chiTransport "github.com/kailas-cloud/vexplain/internal/transport/chi"
	healthuc "github.com/kailas-cloud/vexplain/internal/usecase/health"
	"github.com/kailas-cloud/vexplain/internal/version"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the explain API over HTTP",
		Long: "Load the index once and serve POST /v1/explain, GET /v1/index, GET /v1/health and /metrics.\n\n" +
			"After generation.max_consecutive_failures generator errors the model path is switched off " +
			"and explanations use templates. One trial call is made every generation.cooldown_sec; " +
			"with cooldown_sec 0 only a restart re-enables the model.",
		Args: noArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "listen port (default: http.port)")
	cmd.Flags().String("index-dir", "", "index directory (default: index.dir)")
	cmd.Flags().String("source", "", "knowledge source used when the index must be built (default: knowledge.source)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if cmd.Flags().Changed("port") {
		cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
	}

	a.logger.Info("Starting vexplain API server", append(version.Fields(),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
	)...)

	ctx := cmd.Context()
	c, err := a.wire(ctx)
	if err != nil {
		return err
	}

	dir := stringFlag(cmd, "index-dir", cfg.Index.Dir)
	if err := c.pipeline.EnsureIndex(ctx, stringFlag(cmd, "source", cfg.Knowledge.Source), dir, false); err != nil {
		return err
	}
	engine, err := c.pipeline.Engine(dir, a.options())
	if err != nil {
		return err
	}
	a.logger.Info("Index loaded",
		zap.String("dir", dir),
		zap.String("build_id", engine.Descriptor().BuildID),
		zap.Int("vectors", engine.Descriptor().VectorCount),
	)

	healthSvc := healthuc.New(healthDeps(c, dir))
	server := chiTransport.NewServer(engine, healthSvc, cfg.Index.MaxVariants, a.logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, a.logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// healthDeps maps wired components onto health checks.
func healthDeps(c *components, dir string) healthuc.Deps {
	deps := healthuc.Deps{
		Index: healthuc.CheckerFunc(func(context.Context) error {
			if !index.Exists(dir) {
				return domain.NewConfigurationError("index.dir", "index artifacts missing from "+dir)
			}
			return nil
		}),
		Embedding: healthuc.CheckerFunc(func(ctx context.Context) error {
			if hc, ok := c.provider.(domain.HealthChecker); ok {
				return hc.HealthCheck(ctx)
			}
			return nil
		}),
		Generator: c.explainer,
	}
	// A typed nil *Store wrapped in Pinger != nil.
	if c.cache != nil {
		deps.Cache = c.cache
	}
	return deps
}
