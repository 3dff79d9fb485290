// Command sheetctl merges and previews spreadsheet workbooks from the
// command line.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/internal/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Aggregate and preview spreadsheet workbooks",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitLogging("", logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newMergeCmd(), newRenderCmd(), newSheetsCmd())
	return rootCmd
}

// localFetcher reads paths relative to root and downloads http(s) URLs.
func localFetcher(root string) domain.Fetcher {
	web := source.NewHTTPFetcher("", time.Minute, 0)
	return source.NewMultiFetcher(source.FileFetcher{Root: root}).
		Register("http", web).
		Register("https", web)
}
