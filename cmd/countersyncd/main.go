// Command countersyncd is the high-frequency counter-telemetry daemon:
// it decodes IPFIX-over-generic-netlink counter samples against templates
// published in a state database and streams them out as OpenTelemetry
// gauges, to a console writer or an OTLP/gRPC collector.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonic-net/countersyncd/internal/config"
	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/pipeline"
	"github.com/sonic-net/countersyncd/internal/statedb"
	"github.com/sonic-net/countersyncd/internal/telemetry"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on a clean shutdown, non-zero on a
// fatal initialization failure (spec §6).
func run() int {
	flags := parseFlags()

	log := logging.Build(os.Stderr, flags.LogLevel, flags.LogFormat)

	constants, err := config.LoadConstants(flags.ConstantsPath, log)
	if err != nil {
		log.Error("fatal: could not load constants", "error", err.Error())
		return 1
	}
	cfg := config.Config{Constants: constants, Flags: flags}

	metrics := telemetry.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.WatchForChanges(ctx, flags.ConstantsPath, log); err != nil {
		log.Warn("could not watch constants file for changes", "error", err.Error())
	}

	var metricsServer *http.Server
	if flags.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: flags.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped unexpectedly", "error", err.Error())
			}
		}()
		log.Info("self-observability metrics endpoint listening", "addr", flags.MetricsAddr)
	}

	watcher := statedb.NewNullWatcher()
	p, err := pipeline.New(cfg, watcher, os.Stdout, log, metrics)
	if err != nil {
		log.Error("fatal: could not build pipeline", "error", err.Error())
		return 1
	}

	log.Info("countersyncd starting",
		"genl_family", constants.GenlFamily,
		"genl_multicast_group", constants.GenlMulticastGroup,
		"enable_stats", flags.EnableStats,
		"otlp_endpoint", flags.OTLPEndpoint)

	p.Start(ctx)

	// A second interrupt forces immediate exit: the first one already
	// triggered the graceful shutdown below via signal.NotifyContext.
	forceExit := make(chan os.Signal, 1)
	signal.Notify(forceExit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		select {
		case <-forceExit:
			log.Warn("second interrupt received, forcing exit")
			os.Exit(1)
		case <-time.After(10 * time.Second):
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	p.Stop()
	_ = watcher.Close()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	log.Info("countersyncd stopped cleanly")
	return 0
}

func parseFlags() config.Flags {
	var (
		enableStats           = flag.Bool("enable-stats", false, "turn on the stats reporter (console or OTLP)")
		statsIntervalSeconds  = flag.Int("stats-interval", 10, "stats reporting interval, in seconds")
		detailedStats         = flag.Bool("detailed-stats", true, "print a per-counter detail table instead of an aggregate summary")
		maxStatsPerReport     = flag.Uint("max-stats-per-report", 0, "cap on detail-table rows per report (0 = unlimited)")
		logLevel              = flag.String("log-level", "info", "trace, debug, info, warn, or error")
		logFormat             = flag.String("log-format", "full", "simple or full")
		dataNetlinkCapacity   = flag.Int("data-netlink-capacity", 1024, "bounded queue depth between D and I")
		statsReporterCapacity = flag.Int("stats-reporter-capacity", 1024, "bounded queue depth between I and R")
		constantsPath         = flag.String("constants-path", "", "path to the YAML constants file")
		metricsAddr           = flag.String("metrics-addr", "", "address to serve self-observability /metrics on (empty disables it)")
		otlpEndpoint          = flag.String("otlp-endpoint", "", "OTLP/gRPC collector endpoint; empty selects the console reporter")
	)
	flag.Parse()

	return config.Flags{
		EnableStats:           *enableStats,
		StatsInterval:         time.Duration(*statsIntervalSeconds) * time.Second,
		DetailedStats:         *detailedStats,
		MaxStatsPerReport:     uint32(*maxStatsPerReport),
		LogLevel:              *logLevel,
		LogFormat:             *logFormat,
		DataNetlinkCapacity:   *dataNetlinkCapacity,
		StatsReporterCapacity: *statsReporterCapacity,
		ConstantsPath:         *constantsPath,
		MetricsAddr:           *metricsAddr,
		OTLPEndpoint:          *otlpEndpoint,
	}
}
