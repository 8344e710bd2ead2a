package cmd

import (
	"context"
	"os"
	"time"

	"cartera-reconciler/cmd/cartera/config"
	"cartera-reconciler/internal/reporter"
	"cartera-reconciler/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	summaryFormat   string
	includeFinanced bool
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show portfolio counters",
	Long: `Summary recomputes every portfolio counter from the current record
snapshot: totals, void breakdown, lifecycle statuses, the notification
window, and the summed active amount.

Examples:
  cartera summary
  cartera summary --output-format json
  cartera summary --financed`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVar(&summaryFormat, "output-format", "console", "output format: console, json, csv")
	summaryCmd.Flags().BoolVar(&includeFinanced, "financed", false, "include financed-policy counters")

	viper.BindPFlag("summary-output-format", summaryCmd.Flags().Lookup("output-format"))
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	rt, err := config.BuildRuntime(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer rt.Close()

	records, err := rt.Service.ListAll(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	counters := service.ComputeCounters(records, time.Now(), rt.Service.Thresholds())

	rep := reporter.New(reporter.Format(summaryFormat), os.Stdout)
	if err := rep.WriteCounters(counters); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if includeFinanced {
		_, financed, err := rt.Service.FinancedOverview(ctx)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		if err := rep.WriteFinancedCounters(financed); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}
	return nil
}
