// Package classifier derives lifecycle status, void/freeze state, and
// monetary values from policy records. All functions are pure; the only
// ambient input is the reference time passed by the caller.
package classifier

import (
	"strings"
	"time"

	"cartera-reconciler/internal/dates"
	"cartera-reconciler/internal/keys"
	"cartera-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Thresholds carries the day boundaries used by the status classifier and
// the alert window. The upcoming window and the alert window intentionally
// use different constants; they serve different consumers and must stay
// independently tunable.
type Thresholds struct {
	// UpcomingWindowDays is the inclusive upper bound of the PROXIMA
	// band: 0 <= d <= UpcomingWindowDays.
	UpcomingWindowDays int

	// CurrentMinDays is the strict lower bound used by the "only
	// comfortably current" filter (d > CurrentMinDays).
	CurrentMinDays int

	// AlertWindowMin and AlertWindowMax bound the notification window,
	// inclusive on both ends.
	AlertWindowMin int
	AlertWindowMax int
}

// DefaultThresholds mirrors the values used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UpcomingWindowDays: 5,
		CurrentMinDays:     6,
		AlertWindowMin:     25,
		AlertWindowMax:     30,
	}
}

// IsVoid reports whether an anulada value marks the record void for
// counting and filtering. Matching is case- and whitespace-insensitive.
func IsVoid(anulada string) bool {
	switch normalizeState(anulada) {
	case models.VoidYes, models.VoidYesAccented, models.VoidPending, models.VoidConfirmed:
		return true
	}
	return false
}

// IsFrozen reports whether an anulada value freeze-protects the record:
// batch imports may not touch frozen records. Plain "si"/"sí" is void but
// not frozen.
func IsFrozen(anulada string) bool {
	switch normalizeState(anulada) {
	case models.VoidPending, models.VoidConfirmed:
		return true
	}
	return false
}

func normalizeState(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status classifies a record relative to now. Precedence: void beats
// everything; a missing or unparseable emission date is treated as current
// rather than penalized.
func Status(rec *models.PolicyRecord, now time.Time, th Thresholds) string {
	if IsVoid(rec.Anulada) {
		return models.StatusVoid
	}
	d, ok := dates.DaysFrom(now, rec.FechaEmision)
	if !ok {
		return models.StatusCurrent
	}
	switch {
	case d < 0:
		return models.StatusExpired
	case d <= th.UpcomingWindowDays:
		return models.StatusUpcoming
	default:
		return models.StatusCurrent
	}
}

// InAlertWindow reports whether a non-void record falls inside the
// notification window [AlertWindowMin, AlertWindowMax] days from now.
func InAlertWindow(rec *models.PolicyRecord, now time.Time, th Thresholds) bool {
	if IsVoid(rec.Anulada) {
		return false
	}
	d, ok := dates.DaysFrom(now, rec.FechaEmision)
	if !ok {
		return false
	}
	return d >= th.AlertWindowMin && d <= th.AlertWindowMax
}

// GestionResolved reports whether the gestion field holds the "resolved"
// sentinel. This is unrelated to the void lifecycle.
func GestionResolved(gestion string) bool {
	switch normalizeState(gestion) {
	case "si", "sí":
		return true
	}
	return false
}

// GestionNote returns the free-text management note, or "" when the field
// is empty or holds the resolved sentinel.
func GestionNote(gestion string) string {
	if GestionResolved(gestion) {
		return ""
	}
	return strings.TrimSpace(gestion)
}

// Amount returns the record's monetary value, preferring valor over
// pendiente. Unparseable input yields zero.
func Amount(rec *models.PolicyRecord) decimal.Decimal {
	if v := ParseMoney(rec.Valor); !v.IsZero() {
		return v
	}
	if strings.TrimSpace(rec.Valor) != "" {
		// valor parsed to a literal zero; do not fall through.
		return decimal.Zero
	}
	return ParseMoney(rec.Pendiente)
}

// ParseMoney parses a free-text money amount. It strips currency symbols
// and whitespace, treats "(123)" and unicode minus variants as negative,
// and disambiguates "." and "," by: when both are present the one
// occurring last is the decimal point and the other is the thousands
// separator; when only one is present its last occurrence is the decimal
// point and earlier occurrences are thousands separators. Anything
// unparseable yields zero.
func ParseMoney(raw string) decimal.Decimal {
	negative := false

	// Keep digits, separators, signs, and parentheses; everything else
	// (currency symbols, letters, whitespace) drops out first, so a
	// leading "$ " cannot hide the parenthesized negative form.
	var kept strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '(', r == ')':
			kept.WriteRune(r)
		case r == '-', r == '−', r == '–': // ASCII, minus sign, en dash
			negative = true
		}
	}
	s := kept.String()

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
	}
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	if s == "" {
		return decimal.Zero
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = splitLastSeparator(strings.ReplaceAll(s, ".", ""), ",")
		} else {
			s = splitLastSeparator(strings.ReplaceAll(s, ",", ""), ".")
		}
	case hasComma:
		s = splitLastSeparator(s, ",")
	case hasDot:
		s = splitLastSeparator(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// splitLastSeparator keeps the last occurrence of sep as the decimal point
// and strips every earlier occurrence.
func splitLastSeparator(s, sep string) string {
	i := strings.LastIndex(s, sep)
	head := strings.ReplaceAll(s[:i], sep, "")
	return head + "." + s[i+len(sep):]
}

// Traffic-light colors for the financed-policy workflow.
const (
	SemaforoRed    = "ROJO"
	SemaforoYellow = "AMARILLO"
	SemaforoGreen  = "VERDE"
)

// Semaforo maps a financed policy's milestone state to a traffic-light
// color. An empty endoso decision always reads red: the file has not been
// triaged yet. When endoso is "SI" the certification and endorsement-mail
// flags join the completion criteria; when "NO" only the four milestones
// count.
func Semaforo(p *models.FinancedPolicy) string {
	endoso := strings.ToUpper(strings.TrimSpace(p.Endoso))
	if endoso == "" {
		return SemaforoRed
	}

	allMilestones := p.Montada && p.Recaudada && p.Firmada && p.Desembolsada
	anyMilestone := p.Montada || p.Recaudada || p.Firmada || p.Desembolsada

	if endoso == "SI" {
		docsDone := p.Certificacion && p.CorreoEndoso
		if p.Delegada {
			if allMilestones && docsDone {
				return SemaforoGreen
			}
			return SemaforoYellow
		}
		if allMilestones && docsDone {
			return SemaforoGreen
		}
		// The endorsement mail alone does not lift a file out of red;
		// only milestones or the certification count as progress.
		if anyMilestone || p.Certificacion {
			return SemaforoYellow
		}
		return SemaforoRed
	}

	// endoso == "NO": documents are not applicable.
	if allMilestones {
		return SemaforoGreen
	}
	if p.Delegada || anyMilestone {
		return SemaforoYellow
	}
	return SemaforoRed
}

// RowColor maps a status to the display color used by report output.
func RowColor(status string) string {
	switch status {
	case models.StatusVoid:
		return "gray"
	case models.StatusExpired:
		return "red"
	case models.StatusUpcoming:
		return "yellow"
	default:
		return "green"
	}
}

// AmountFromRow resolves and parses a money field straight from a raw
// batch row, used by reports that run before records are persisted.
func AmountFromRow(row map[string]interface{}, candidates []string) decimal.Decimal {
	v := keys.Resolve(row, candidates)
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return decimal.Zero
		}
		// numeric cell values arrive as float64 from spreadsheet readers
		if f, isFloat := v.(float64); isFloat {
			return decimal.NewFromFloat(f)
		}
		return decimal.Zero
	}
	return ParseMoney(s)
}
