package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"netexplorer/core-go/internal/config"
	"netexplorer/core-go/internal/controller"
	"netexplorer/core-go/internal/db"
	"netexplorer/core-go/internal/graphs"
	"netexplorer/core-go/internal/httpapi"
	"netexplorer/core-go/internal/metrics"
	"netexplorer/core-go/internal/nodestats"
	"netexplorer/core-go/internal/persist"
	"netexplorer/core-go/internal/refresher"
	"netexplorer/core-go/internal/topology"
	"netexplorer/core-go/internal/trackerapi"
)

func main() {
	var configPath string
	var checkOnly bool

	flagSet := pflag.NewFlagSet("explorer-core", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", os.Getenv("EXPLORER_CONFIG"), "path to YAML config file")
	flagSet.BoolVar(&checkOnly, "check", false, "validate the config and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}
	if checkOnly {
		fmt.Println("config ok")
		return
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
	}

	m := metrics.New()

	client := trackerapi.NewClient(trackerapi.Options{
		Static:      staticTrackers(cfg.Trackers.Static),
		RegistryURL: cfg.Trackers.RegistryURL,
		Discovery:   srvDiscovery(cfg.Trackers),
		Timeout:     cfg.Trackers.Timeout,
	})

	intervals, err := cfg.Intervals()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid graph intervals")
	}
	ctrlOpts := controller.Options{
		SearchLimit: cfg.SearchLimit,
		Intervals:   intervals,
		Interval:    graphs.Interval(cfg.Graphs.Initial),
	}

	var store *persist.Store
	if pool != nil {
		store = persist.New(pool.Queries(), pool)
		ctrlOpts.Saver = store
	}

	ctrl, err := controller.New(logger, client, ctrlOpts, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build controller")
	}
	ctrl.SetGraphsDisabled(cfg.Graphs.Disabled)

	if store != nil {
		nodes, err := store.LoadNodes(ctx)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("load stored node set failed")
		case len(nodes) > 0:
			ctrl.Seed(nodes)
		}
	}

	var stats nodestats.Source = nodestats.NewTrackerSource(client, ctrl.Trackers)
	if len(cfg.SNMP.Targets) > 0 {
		stats = nodestats.Fallback{
			Primary: nodestats.NewSNMPSource(nodestats.SNMPConfig{
				Community: cfg.SNMP.Community,
				Version:   cfg.SNMP.Version,
				Port:      cfg.SNMP.Port,
				Timeout:   cfg.SNMP.Timeout,
				Retries:   cfg.SNMP.Retries,
				Targets:   cfg.SNMP.Targets,
			}),
			Secondary: stats,
		}
	}

	var rec refresher.Recorder
	handlerOpts := httpapi.Options{Stats: stats, Metrics: m}
	if store != nil {
		rec = store
		handlerOpts.History = store
	}

	ref := refresher.New(logger, ctrl, stats, rec, refresher.Options{Interval: cfg.RefreshInterval}, m)
	go ref.Run(ctx)

	h := httpapi.NewHandler(logger, pool, ctrl, handlerOpts)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("explorer-core listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func staticTrackers(in []config.TrackerConfig) []topology.Tracker {
	out := make([]topology.Tracker, 0, len(in))
	for i, t := range in {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			id = fmt.Sprintf("static-%d", i)
		}
		out = append(out, topology.Tracker{ID: id, HTTPURL: strings.TrimSpace(t.HTTP), WSURL: strings.TrimSpace(t.WS)})
	}
	return out
}

func srvDiscovery(cfg config.TrackersConfig) trackerapi.Discoverer {
	if strings.TrimSpace(cfg.DNSSRV) == "" {
		return nil
	}
	return &trackerapi.SRVDiscovery{
		Name:    cfg.DNSSRV,
		Server:  cfg.DNSServer,
		Timeout: cfg.Timeout,
	}
}
