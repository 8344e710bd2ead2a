// Package reporter renders import summaries and portfolio counters for
// operator review, in console, JSON, or CSV form.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"cartera-reconciler/internal/service"
	carterrors "cartera-reconciler/pkg/errors"
)

// Format selects the output rendering.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// Reporter writes summaries in a configured format.
type Reporter struct {
	format Format
	out    io.Writer
}

// New builds a Reporter. Unknown formats fall back to console.
func New(format Format, out io.Writer) *Reporter {
	switch format {
	case FormatConsole, FormatJSON, FormatCSV:
	default:
		format = FormatConsole
	}
	return &Reporter{format: format, out: out}
}

// WriteImportSummary renders one import run.
func (r *Reporter) WriteImportSummary(s *service.ImportSummary) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(s)
	case FormatCSV:
		return r.writeImportCSV(s)
	default:
		return r.writeImportConsole(s)
	}
}

func (r *Reporter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"failed to encode report")
	}
	return nil
}

func (r *Reporter) writeImportConsole(s *service.ImportSummary) error {
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(r.out, format+"\n", args...)
	}

	w("Import Summary")
	w("==============")
	if s.FirstImport {
		w("Mode:                 first import (no reconciliation)")
	} else {
		w("Mode:                 reconciliation")
	}
	w("Rows processed:       %d", s.TotalRows())
	w("New policies:         %d", s.CreatedNewPolicy)
	w("New by date:          %d", s.CreatedNewByDate)
	w("Updated:              %d", s.Updated)
	w("Skipped (no key):     %d", s.SkippedNoKey)
	w("Skipped (frozen):     %d", s.SkippedFrozen)
	w("Moved to pending:     %d", s.TransitionedPending)
	w("Frozen and missing:   %d", s.AlreadyFrozenAndMissing)
	if s.MissingEmissionDate > 0 {
		w("Missing emission:     %d", s.MissingEmissionDate)
	}
	w("")
	w("Records before: %d (%d voided)", s.TotalBefore, s.VoidedBefore)
	w("Records after:  %d (%d voided, %d active)", s.TotalAfter, s.VoidedAfter, s.ActiveAfter)

	if len(s.Failures) > 0 {
		w("")
		w("Write failures: %d", len(s.Failures))
		for _, f := range s.Failures {
			w("  [%s] %s: %s", f.Op, f.Key, f.Error)
		}
		w("")
		w("Re-run the import to retry; the reconciliation converges.")
	}
	return nil
}

func (r *Reporter) writeImportCSV(s *service.ImportSummary) error {
	w := csv.NewWriter(r.out)
	rows := [][]string{
		{"metric", "value"},
		{"first_import", strconv.FormatBool(s.FirstImport)},
		{"rows_processed", strconv.Itoa(s.TotalRows())},
		{"created_new_policy", strconv.Itoa(s.CreatedNewPolicy)},
		{"created_new_by_date", strconv.Itoa(s.CreatedNewByDate)},
		{"updated", strconv.Itoa(s.Updated)},
		{"skipped_no_key", strconv.Itoa(s.SkippedNoKey)},
		{"skipped_frozen", strconv.Itoa(s.SkippedFrozen)},
		{"transitioned_pending", strconv.Itoa(s.TransitionedPending)},
		{"already_frozen_and_missing", strconv.Itoa(s.AlreadyFrozenAndMissing)},
		{"failures", strconv.Itoa(len(s.Failures))},
		{"total_before", strconv.Itoa(s.TotalBefore)},
		{"total_after", strconv.Itoa(s.TotalAfter)},
		{"active_after", strconv.Itoa(s.ActiveAfter)},
	}
	if err := w.WriteAll(rows); err != nil {
		return carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"failed to write CSV report")
	}
	return nil
}

// WriteCounters renders a portfolio counter snapshot.
func (r *Reporter) WriteCounters(c service.Counters) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(c)
	case FormatCSV:
		w := csv.NewWriter(r.out)
		rows := [][]string{
			{"metric", "value"},
			{"total", strconv.Itoa(c.Total)},
			{"active", strconv.Itoa(c.Active)},
			{"voided", strconv.Itoa(c.Voided)},
			{"pending_void", strconv.Itoa(c.PendingVoid)},
			{"confirmed_void", strconv.Itoa(c.ConfirmedVoid)},
			{"current", strconv.Itoa(c.Current)},
			{"upcoming", strconv.Itoa(c.Upcoming)},
			{"expired", strconv.Itoa(c.Expired)},
			{"in_alert_window", strconv.Itoa(c.InAlertWindow)},
			{"active_amount", c.ActiveAmount.String()},
			{"negative_count", strconv.Itoa(c.NegativeCount)},
			{"negative_amount", c.NegativeAmount.String()},
		}
		if err := w.WriteAll(rows); err != nil {
			return carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
				"failed to write CSV report")
		}
		return nil
	default:
		fmt.Fprintf(r.out, "Portfolio\n=========\n")
		fmt.Fprintf(r.out, "Total:          %d\n", c.Total)
		fmt.Fprintf(r.out, "Active:         %d\n", c.Active)
		fmt.Fprintf(r.out, "Voided:         %d (pending %d, confirmed %d)\n", c.Voided, c.PendingVoid, c.ConfirmedVoid)
		fmt.Fprintf(r.out, "Current:        %d\n", c.Current)
		fmt.Fprintf(r.out, "Upcoming:       %d\n", c.Upcoming)
		fmt.Fprintf(r.out, "Expired:        %d\n", c.Expired)
		fmt.Fprintf(r.out, "Alert window:   %d\n", c.InAlertWindow)
		fmt.Fprintf(r.out, "Active amount:  %s\n", c.ActiveAmount.StringFixed(2))
		if c.NegativeCount > 0 {
			fmt.Fprintf(r.out, "Negative:       %d (%s)\n", c.NegativeCount, c.NegativeAmount.StringFixed(2))
		}
		return nil
	}
}

// WriteFinancedCounters renders the financed-workflow counters.
func (r *Reporter) WriteFinancedCounters(c service.FinancedCounters) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(c)
	default:
		fmt.Fprintf(r.out, "Financed policies\n=================\n")
		fmt.Fprintf(r.out, "Total:   %d\n", c.Total)
		fmt.Fprintf(r.out, "Red:     %d\n", c.Red)
		fmt.Fprintf(r.out, "Yellow:  %d\n", c.Yellow)
		fmt.Fprintf(r.out, "Green:   %d\n", c.Green)
		fmt.Fprintf(r.out, "Certifications pending: %d\n", c.CertPending)
		fmt.Fprintf(r.out, "Endorsement mails pending: %d\n", c.MailPending)
		return nil
	}
}
