package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"machine-metrics/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "metricsd [config]",
	Short: "Samples host metrics and serves recent history over HTTP",
	Long: `metricsd samples CPU, memory and network counters on a fixed interval,
keeps the most recent points of every series in memory and serves them to
bearer-token authenticated clients.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), resolveConfigPath(args))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath,
		"config",
		"c",
		config.DefaultPath,
		"Path to the TOML configuration file.",
	)
	rootCmd.AddCommand(archiveCmd)
}

// resolveConfigPath prefers a positional argument over --config.
func resolveConfigPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return configPath
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
