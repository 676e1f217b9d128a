package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"krxdb/config"
	"krxdb/internal/fetch"
	"krxdb/internal/metrics"
	"krxdb/internal/pipeline"
	"krxdb/internal/registry"
	"krxdb/loader"
	"krxdb/logger"
	"krxdb/model"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "path to configuration file")
	fixturesDir := flag.String("fixtures", "fixtures", "directory of per-date JSON payload fixtures")
	start := flag.Int("start", 0, "window start date, YYYYMMDD")
	end := flag.Int("end", 0, "window end date, YYYYMMDD")
	field := flag.String("field", "close", "logical field name to query")
	universe := flag.String("universe", "", "universe name (e.g. top_100); empty means unfiltered")
	adjusted := flag.Bool("adjusted", true, "apply cumulative price adjustment")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on; empty disables the server")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Krxdb.Name,
		"version":     cfg.Krxdb.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting krxloader")

	if *start == 0 || *end == 0 {
		log.Error("both -start and -end are required")
		os.Exit(1)
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics server exited")
			}
		}()
		log.WithFields(logger.Fields{"addr": *metricsAddr}).Info("metrics server listening")
	}

	var reg *registry.Registry
	if cfg.Registry.Path != "" {
		reg, err = registry.Load(cfg.Registry.Path)
		if err != nil {
			log.WithError(err).Error("failed to load field registry")
			os.Exit(1)
		}
	}

	fetcher := fetch.FileFetcher{Dir: *fixturesDir}
	opts := pipeline.Options{
		RowGroupSize: cfg.Partitioning.RowGroupSize,
		Compression:  cfg.Partitioning.Compression,
		MaxWorkers:   cfg.Pipeline.MaxWorkers,
		SkipExisting: cfg.Pipeline.SkipExisting,
	}

	reporter := func(e pipeline.Event) {
		log.WithComponent("pipeline").WithFields(logger.Fields{
			"stage":       e.Stage,
			"date":        e.Date,
			"rows":        e.RowsWritten,
			"elapsed_ms":  e.Elapsed.Milliseconds(),
			"correlation": e.CorrelationID,
		}).Info("stage progress")
	}

	tiers := make([]model.UniverseTier, 0, len(cfg.Universe.Tiers))
	for _, t := range cfg.Universe.Tiers {
		tiers = append(tiers, model.UniverseTier{Name: t.Name, MaxRank: t.MaxRank})
	}

	l, summary, err := loader.New(cfg.Store.Root, cfg.Store.EphemeralRoot, *start, *end, fetcher, reg, tiers, opts, reporter)
	if err != nil {
		log.WithError(err).Error("failed to prepare store")
		os.Exit(1)
	}
	log.WithFields(logger.Fields{
		"succeeded": len(summary.Succeeded),
		"skipped":   len(summary.SkippedNonTrading),
		"failed":    len(summary.Failed),
	}).Info("prepare complete")

	var universeArg any
	if *universe != "" {
		universeArg = *universe
	}

	table, err := l.Get(*field, universeArg, nil, *adjusted)
	if err != nil {
		log.WithError(err).Error("query failed")
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	rows := make([]map[string]any, 0, len(table.Dates()))
	for _, date := range table.Dates() {
		row := map[string]any{"date": date}
		for _, symbol := range table.Symbols() {
			if value, ok := table.Value(date, symbol); ok {
				row[symbol] = value
			}
		}
		rows = append(rows, row)
	}
	if err := encoder.Encode(rows); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
