// Command cleandns runs the recursive-forwarding DNS router, or compiles a
// geosite bundle from per-category domain lists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tigerzhang/clean-dns/internal/api"
	"github.com/tigerzhang/clean-dns/internal/config"
	"github.com/tigerzhang/clean-dns/internal/graph"
	"github.com/tigerzhang/clean-dns/internal/listener"
	"github.com/tigerzhang/clean-dns/internal/logging"
	"github.com/tigerzhang/clean-dns/internal/providers"
	"github.com/tigerzhang/clean-dns/internal/stats"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "make-geosite" {
		if err := runMakeGeosite(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values for the default `run`
// behavior, grounded on HydraDNS's cmd/hydradns parseFlags/cliFlags split.
type cliFlags struct {
	configPath string
	bind       string
	debug      bool
}

func parseFlags(args []string) cliFlags {
	fs := flag.NewFlagSet("cleandns", flag.ExitOnError)
	var f cliFlags
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&f.bind, "bind", "", "Override the UDP listen address")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.Parse(args)
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.bind != "" {
		cfg.Bind = f.bind
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run(args []string) error {
	flags := parseFlags(args)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
	})

	runID := uuid.New().String()
	logger.Info("cleandns starting",
		"run_id", runID,
		"bind", cfg.Bind,
		"entry", cfg.Entry,
		"plugins", len(cfg.Plugins),
	)

	g, err := graph.Build(cfg.Entry, cfg.Plugins, logger)
	if err != nil {
		return fmt.Errorf("building plugin graph: %w", err)
	}

	agg := stats.New()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var apiSrv *api.Server
	if cfg.API.Enabled {
		apiSrv = api.New(cfg.API.Host, cfg.API.Port, agg, logger)
		logger.Info("management API starting", "addr", apiSrv.Addr())
		go func() {
			if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("management API error", "err", err)
				cancel()
			}
		}()
	}

	l := &listener.Listener{Logger: logger, Graph: g, Stats: agg}
	logger.Info("listener starting", "addr", cfg.Bind)
	runErr := l.Run(ctx, cfg.Bind)

	if apiSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = apiSrv.Shutdown(shutdownCtx)
		shutdownCancel()
		logger.Info("management API stopped")
	}

	if runErr != nil {
		return fmt.Errorf("listener exited with error: %w", runErr)
	}
	return nil
}

func runMakeGeosite(args []string) error {
	fs := flag.NewFlagSet("make-geosite", flag.ExitOnError)
	srcDir := fs.String("src", "", "Directory of per-category <CODE>.txt domain-list files")
	out := fs.String("out", "geosite.dat", "Output path for the compiled bundle")
	fs.Parse(args)

	if *srcDir == "" {
		return errors.New("make-geosite: -src is required")
	}
	return providers.CompileGeosite(*srcDir, *out)
}
