package main

import (
	"context"
	"os"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"machine-metrics/internal/config"
	"machine-metrics/internal/domain"
	"machine-metrics/internal/repository"
)

var (
	archiveMetric string
	archiveCount  int
)

type archivedPoint struct {
	Metric string `json:"metric"`
	domain.MetricPoint
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Print archived samples of one series as JSON lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := domain.ParseMetricKey(archiveMetric)
		if err != nil {
			return err
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return errors.WrapIfWithDetails(err, "failed to load configuration", "path", configPath)
		}
		if cfg.ArchivePath == "" {
			return errors.New("archive_path is not set in the configuration")
		}

		return printArchive(cmd.Context(), repository.NewSQLiteStore(cfg.ArchivePath), key, archiveCount)
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveMetric, "metric", "m", "cpus_usage",
		"Series to print: cpus_usage, cpu_usage.<core>, mem_usage, net_tx_usage or net_rx_usage.")
	archiveCmd.Flags().IntVarP(&archiveCount, "count", "n", 100, "Number of newest samples to print; 0 prints all.")
}

func printArchive(ctx context.Context, store domain.SampleArchive, key domain.MetricKey, count int) error {
	if err := store.Init(); err != nil {
		return errors.WrapIf(err, "failed to open archive")
	}
	defer store.Close()

	samples, err := store.GetSamples(ctx, key, count)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, s := range samples {
		if err := enc.Encode(archivedPoint{Metric: s.Key.String(), MetricPoint: s.Point}); err != nil {
			return err
		}
	}
	return nil
}
