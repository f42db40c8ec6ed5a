package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/blockstore"
	"github.com/sagarc03/ipgate/cache"
	"github.com/sagarc03/ipgate/config"
	"github.com/sagarc03/ipgate/dagfs"
	ipgatehttp "github.com/sagarc03/ipgate/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the ipgate HTTP gateway.

Content is read from the configured block store and served at
/ipfs/<cid>/<path> and <cid>.ipfs.<host>/<path>.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().Duration("timeout", 0, "abort responses making no progress for this long (default: 30s)")
	serveCmd.Flags().Bool("debug", false, "include internal error details in responses")
	serveCmd.Flags().Bool("access-log", false, "write an access log to stdout")
	serveCmd.Flags().Bool("cache", true, "enable the in-memory edge cache")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bs, closeStore, err := blockstore.Open(ctx, cfg.Blockstore.Options(slog.Default()))
	if err != nil {
		return fmt.Errorf("open blockstore: %w", err)
	}
	defer closeStore()
	slog.Info("opened blockstore", "type", cfg.Blockstore.Type)

	fetcher := dagfs.New(bs,
		dagfs.WithConcurrency(cfg.Gateway.Concurrency),
		dagfs.WithLogger(slog.Default()),
	)

	var edge cache.Cache
	if cfg.Cache.Enabled {
		mem, err := cache.NewMemory(cache.Config{
			MaxCost:     cfg.Cache.MaxCost,
			NumCounters: cfg.Cache.NumCounters,
		})
		if err != nil {
			return err
		}
		defer mem.Close()
		edge = mem
	}

	tasks := ipgate.NewTaskGroup(cfg.Gateway.ShutdownTimeout)

	handler := ipgatehttp.NewHandler(&ipgatehttp.HandlerConfig{
		CORS: ipgatehttp.CORSConfig{
			Enabled:          cfg.CORS.Enabled,
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			ExposedHeaders:   cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
		Debug:              cfg.Gateway.Debug,
		Timeout:            cfg.Gateway.Timeout,
		Cache:              edge,
		CacheMaxObjectSize: cfg.Gateway.CacheMaxObjectSize,
		Tasks:              tasks,
		Logger:             slog.Default(),
	}, fetcher)

	var h http.Handler = handler.Router()
	if cfg.Server.AccessLog {
		h = handlers.CombinedLoggingHandler(os.Stdout, h)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		if err := tasks.Wait(shutdownCtx); err != nil {
			slog.Warn("deferred tasks did not finish", "err", err)
		}
	}()

	slog.Info("starting server", "addr", addr, "cache", cfg.Cache.Enabled, "timeout", cfg.Gateway.Timeout)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-stopped
		return fmt.Errorf("server error: %w", err)
	}

	<-stopped
	return nil
}
