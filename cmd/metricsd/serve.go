package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"emperror.dev/errors"

	"machine-metrics/internal/cache"
	"machine-metrics/internal/config"
	"machine-metrics/internal/domain"
	"machine-metrics/internal/repository"
	"machine-metrics/internal/router"
	"machine-metrics/internal/sampler"
	"machine-metrics/internal/util"
)

func LoggerInitialize(cfg *config.Config) (*util.MetricsLogger, error) {

	var metricsLogger util.MetricsLogger

	level, err := util.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	util.SetCommonLoggerAttributes(level)

	if cfg.LogDir != "" {
		util.SetLoggerPath(cfg.LogDir)
		util.CheckAndCreateLogFolder(cfg.LogDir)
	}

	if err := metricsLogger.Init("metricsd.log", false); err != nil {
		return nil, errors.WrapIf(err, "failed to initialize logger")
	}

	currentTime := time.Now().Format(time.RFC3339)
	fmt.Fprintf(os.Stderr, "\n%s: metricsd started \n", currentTime)

	return &metricsLogger, nil
}

// serve runs the sampler and the HTTP API until SIGINT or SIGTERM. Any
// configuration problem aborts startup.
func serve(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return errors.WrapIfWithDetails(err, "failed to load configuration", "path", path)
	}

	logger, err := LoggerInitialize(cfg)
	if err != nil {
		return err
	}
	defer logger.DeInit()

	if fingerprint, err := cfg.Fingerprint(); err == nil {
		logger.LogEvent(util.LOG_LEVEL_INFO, "Loaded configuration", path, fmt.Sprintf("fingerprint=%016x", fingerprint))
	}

	metricCache, err := cache.New(cfg.ShardCount, cfg.RingSize)
	if err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Invalid cache configuration. Err - ", err)
		return err
	}

	var archive domain.SampleArchive
	if cfg.ArchivePath != "" {
		store := repository.NewSQLiteStore(cfg.ArchivePath)
		if err := store.Init(); err != nil {
			logger.LogEvent(util.LOG_LEVEL_ERROR, "Failed to initialize sample archive. Err - ", err)
			return errors.WrapIfWithDetails(err, "failed to open archive", "path", cfg.ArchivePath)
		}
		defer store.Close()
		archive = store
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sampler.New(metricCache, sampler.NewHostSource(), logger, sampler.Options{
		Interface: cfg.EthernetName,
		Interval:  cfg.SampleInterval(),
		Archive:   archive,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	appRouter := router.NewRouter(metricCache, router.Options{
		Tokens:    cfg.TokenSet(),
		Interface: cfg.EthernetName,
	}, logger)
	server := router.NewServer(cfg.ListenAddr, appRouter)

	err = router.Run(ctx, server, logger)
	stop()
	wg.Wait()
	if err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Server error. Err - ", err)
	}
	return err
}
