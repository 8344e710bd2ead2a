package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cartera-reconciler/cmd/cartera/config"
	"cartera-reconciler/internal/batch"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exportOutput string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the portfolio as a spreadsheet",
	Long: `Export writes the full record set to an .xlsx file using the standard
portfolio column projection.

Examples:
  cartera export --output cartera.xlsx`,
	PreRunE: validateExportFlags,
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "destination .xlsx path (required)")
	exportCmd.MarkFlagRequired("output")

	viper.BindPFlag("export-output", exportCmd.Flags().Lookup("output"))
}

func validateExportFlags(cmd *cobra.Command, args []string) error {
	if exportOutput == "" {
		return fmt.Errorf("output is required")
	}
	dir := filepath.Dir(exportOutput)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
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

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := batch.ExportXLSX(records, f); err != nil {
		os.Exit(handler.HandleError(err))
	}

	fmt.Printf("Exported %d records to %s\n", len(records), exportOutput)
	return nil
}
