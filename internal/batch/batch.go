// Package batch reads import batches from spreadsheet and CSV sources and
// resolves their free-form column headers to the logical fields of a
// policy record.
package batch

import (
	"strconv"
	"strings"
	"time"

	"cartera-reconciler/internal/keys"
)

// Row is one raw batch entry: arbitrary header names mapped to raw cell
// values (string, float64, or time.Time depending on the source).
type Row map[string]interface{}

// Logical field names resolvable on a Row.
const (
	FieldPoliza           = "poliza"
	FieldFechaEmision     = "fecha_emision"
	FieldFechaVencimiento = "fecha_vencimiento"
	FieldAseguradora      = "aseguradora"
	FieldNombre           = "nombre"
	FieldAsesor           = "asesor"
	FieldPlaca            = "placa"
	FieldRamo             = "ramo"
	FieldValor            = "valor"
	FieldPendiente        = "pendiente"
	FieldRecaudada        = "recaudada"
	FieldObservacion      = "observacion"
	FieldVigente          = "vigente"
	FieldPagoJL           = "pago_jl"
)

// fieldAliases maps each logical field to the header spellings seen across
// insurer spreadsheets, in priority order. Matching is done through
// keys.TextKey, so case, accents, and punctuation do not matter.
var fieldAliases = map[string][]string{
	FieldPoliza: {
		"Poliza", "Póliza",
		"No. Poliza", "No. Póliza",
		"No Poliza", "No Póliza",
		"Numero Poliza", "Número Póliza",
		"Poliza No", "Póliza No",
		"Recibo", "No. Recibo",
	},
	FieldFechaEmision: {
		"Fecha de emisión", "Fecha de emision",
		"Fecha emisión", "Fecha emision",
		"Emisión", "Emision",
		"Fecha de expedición", "Fecha de expedicion",
		"Fecha expedición", "Fecha expedicion",
	},
	FieldFechaVencimiento: {
		"Fecha de vencimiento", "Fecha vencimiento",
		"Vencimiento", "Vence",
		"Vigencia hasta", "Fin vigencia",
	},
	FieldAseguradora: {"Aseguradora", "Compania", "Compañia"},
	FieldNombre:      {"Nombre", "Asegurado", "Tomador"},
	FieldAsesor:      {"Asesor"},
	FieldPlaca:       {"Placa"},
	FieldRamo:        {"Ramo"},
	FieldValor:       {"Valor", "Prima", "Total"},
	FieldPendiente:   {"Pendiente"},
	FieldRecaudada:   {"Recaudada"},
	FieldObservacion: {"Observacion", "Observación", "Notas"},
	FieldVigente:     {"Vigente"},
	FieldPagoJL:      {"Pago JL", "PagoJL"},
}

// Aliases returns the header alias list for a logical field.
func Aliases(field string) []string {
	return fieldAliases[field]
}

// Value resolves a logical field to its raw cell value, or "" when no
// aliased header carries one.
func (r Row) Value(field string) interface{} {
	return keys.Resolve(r, fieldAliases[field])
}

// Text resolves a logical field to a trimmed string form of its cell.
func (r Row) Text(field string) string {
	return CellText(r.Value(field))
}

// CellText renders a raw cell value as a string. Numeric cells print
// without exponent notation; date cells print in canonical form.
func CellText(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case time.Time:
		return c.Format("2006-01-02")
	default:
		return ""
	}
}
