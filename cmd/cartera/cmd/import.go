package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cartera-reconciler/cmd/cartera/config"
	"cartera-reconciler/internal/batch"
	"cartera-reconciler/internal/engine"
	"cartera-reconciler/internal/reporter"
	"cartera-reconciler/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the import command
var (
	importFile   string
	delimiter    string
	outputFormat string
	outputFile   string
	dryRun       bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile a spreadsheet batch against the portfolio",
	Long: `Import reads a batch file (.xlsx or delimited text), matches each row
to the existing portfolio by policy number + emission date, and applies
the resulting creates, updates, and pending-void transitions.

The first import against an empty portfolio uploads everything without
comparing. Frozen records (anulada pendiente/confirmada) are never
touched. Re-running the same batch converges, so a partially failed
import is retried by importing again.

Examples:
  cartera import --file cartera.xlsx
  cartera import --file cartera.csv --delimiter ";"
  cartera import --file cartera.xlsx --dry-run
  cartera import --file cartera.xlsx --output-format json --output-file result.json`,

	PreRunE: validateImportFlags,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "path to batch file (required)")
	importCmd.Flags().StringVar(&delimiter, "delimiter", ",", "field delimiter for text batches")
	importCmd.Flags().StringVar(&outputFormat, "output-format", "console", "output format: console, json, csv")
	importCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the diff without writing")

	importCmd.MarkFlagRequired("file")

	viper.BindPFlag("file", importCmd.Flags().Lookup("file"))
	viper.BindPFlag("delimiter", importCmd.Flags().Lookup("delimiter"))
	viper.BindPFlag("output-format", importCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", importCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("dry-run", importCmd.Flags().Lookup("dry-run"))
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	importFile = viper.GetString("file")
	delimiter = viper.GetString("delimiter")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	dryRun = viper.GetBool("dry-run")

	if importFile == "" {
		return fmt.Errorf("file is required")
	}
	if err := validateFileExists(importFile, "batch file"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if len(delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func readBatch(path string) ([]batch.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return batch.ReadXLSX(f)
	}
	return batch.ReadCSV(f, rune(delimiter[0]))
}

// wrapDryRun presents an engine-only result through the summary renderer.
func wrapDryRun(result *engine.ImportResult) *service.ImportSummary {
	return &service.ImportSummary{ImportResult: result}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	rows, err := readBatch(importFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	rt, err := config.BuildRuntime(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer rt.Close()

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	rep := reporter.New(reporter.Format(outputFormat), out)

	if dryRun {
		result, err := rt.Service.DryRun(ctx, rows)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}
		fmt.Fprintln(os.Stderr, "Dry run: no writes were applied")
		return rep.WriteImportSummary(wrapDryRun(result))
	}

	summary, err := rt.Service.RunImport(ctx, rows)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	if err := rep.WriteImportSummary(summary); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if len(summary.Failures) > 0 {
		rt.Log.Warnf("%d writes failed; re-run the import to retry", len(summary.Failures))
	}
	return nil
}
