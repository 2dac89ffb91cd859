package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/cache"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/config"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/logging"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/metrics"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/server"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/storage"
)

func main() {
	// Command-line flags; set flags override the config file.
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.String("listen", "", "HTTP listen address (default :8088)")
	flag.String("web_dir", "", "Directory for static web files")
	flag.String("sample_path", "", "CSV shown when nothing is uploaded")
	flag.String("protocol_filter", "", "Offer the protocol filter (true/false)")
	flag.String("top_ports", "", "Number of ports in the top ports chart")
	flag.String("max_upload_bytes", "", "Upload size limit in bytes")
	flag.String("cache_ttl", "", "Evict parsed files idle this long (e.g. 30m)")
	flag.String("cache_sweep", "", "Cache sweep interval")
	flag.String("log_level", "", "debug, info, warn or error")
	flag.String("log_format", "", "text or json")
	flag.String("gzip", "", "Compress responses (true/false)")
	flag.String("default_row_limit", "", "Rows returned by /api/rows without a limit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		err = cfg.Set(f.Name, f.Value.String())
	})
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	slog.Info("security dashboard starting", "listen", cfg.Listen, "sample", cfg.SamplePath)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 1. Metrics and the parsed-table cache
	m := metrics.New()
	tables := cache.NewStore()
	tables.StartCleanupLoop(ctx, cfg.CacheSweep, cfg.CacheTTL, func(n int) {
		m.CacheEvictedTotal.Add(float64(n))
		m.CacheEntries.Set(float64(tables.Len()))
		slog.Debug("cache pruned", "evicted", n, "entries", tables.Len())
	})

	// 2. Loader and exporter
	loader, err := storage.NewLoader(tables, m, cfg.MaxUploadBytes)
	if err != nil {
		slog.Error("failed to create loader", "error", err)
		os.Exit(1)
	}
	defer loader.Close()

	exporter, err := storage.NewExporter()
	if err != nil {
		slog.Error("failed to create exporter", "error", err)
		os.Exit(1)
	}

	// 3. Dashboard session
	dash := engine.NewDashboard(loader.Load, loader.LoadFile, engine.Options{
		SamplePath:     cfg.SamplePath,
		ProtocolFilter: *cfg.ProtocolFilter,
		TopPorts:       cfg.TopPorts,
	})
	if ds, err := dash.Active(); err != nil {
		slog.Warn("no dataset available until a file is uploaded", "error", err)
	} else {
		slog.Info("sample dataset loaded", "path", ds.Name, "rows", ds.Table.NumRows(), "id", ds.Info.ID)
	}

	// 4. HTTP server
	srv := server.NewDashboardServer(dash, exporter, m, server.Options{
		WebDir:          cfg.WebDir,
		Gzip:            *cfg.Gzip,
		DefaultRowLimit: cfg.DefaultRowLimit,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	go func() {
		slog.Info("listening", "addr", cfg.Listen)
		if err := srv.Start(cfg.Listen); err != nil {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("security dashboard exited")
}
