package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"cartera-reconciler/pkg/errors"
	"cartera-reconciler/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if carteraErr, ok := errors.AsCarteraError(err); ok {
		return h.handleCarteraError(carteraErr)
	}

	return h.handleGenericError(err)
}

// handleCarteraError handles CarteraError with detailed context
func (h *CLIErrorHandler) handleCarteraError(err *errors.CarteraError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-CarteraError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, check the logs or run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the batch file format (.xlsx or delimited text)
• Check that the first row carries the column headers
• Header names are matched ignoring case, accents, and punctuation
• Use 'cartera import --help' for examples`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that rows carry a policy number and an emission date
• Dates accept YYYY-MM-DD, DD/MM/YYYY, and spreadsheet serials
• Amounts accept currency symbols and either separator convention`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Environment variables use the CARTERA_ prefix (e.g. CARTERA_DSN)`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• Ensure only one import runs at a time against the same store
• Re-running the same batch is safe; the import converges`

	case errors.CategoryPersistence:
		return `Persistence error help:
• Check the store connection (--dsn / CARTERA_DSN)
• Failed writes do not abort the batch; re-import to retry
• Verify the database user may create tables on first run`

	default:
		return `General help:
• Run with --verbose for detailed error information
• Use 'cartera --help' to see all available commands`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	if os.IsPermission(err) {
		return true
	}
	if errno, ok := err.(syscall.Errno); ok {
		return errno == syscall.EACCES || errno == syscall.EPERM
	}
	return strings.Contains(err.Error(), "permission denied")
}
