// Package models defines the core data structures shared across the
// reconciliation engine, the stores, and the batch import pipeline.
package models

import "time"

// Void-state values carried in the Anulada field. The accented and
// unaccented plain "yes" spellings both occur in historical data.
const (
	VoidNo          = "no"
	VoidYes         = "si"
	VoidYesAccented = "sí"
	VoidPending     = "pendiente"
	VoidConfirmed   = "confirmada"
)

// Policy status values derived from the emission date.
const (
	StatusVoid     = "ANULADA"
	StatusCurrent  = "VIGENTE"
	StatusUpcoming = "PROXIMA"
	StatusExpired  = "VENCIDA"
)

// PolicyRecord is a portfolio entry. Field values are kept as free-form
// strings because source spreadsheets are not schema-controlled; only the
// derived key fields have a fixed format.
type PolicyRecord struct {
	ID string `json:"id,omitempty"`

	Aseguradora      string `json:"aseguradora,omitempty"`
	Nombre           string `json:"nombre,omitempty"`
	Asesor           string `json:"asesor,omitempty"`
	Placa            string `json:"placa,omitempty"`
	Ramo             string `json:"ramo,omitempty"`
	Poliza           string `json:"poliza,omitempty"`
	FechaEmision     string `json:"fecha_emision,omitempty"`
	FechaVencimiento string `json:"fecha_vencimiento,omitempty"`
	Valor            string `json:"valor,omitempty"`
	Pendiente        string `json:"pendiente,omitempty"`
	Recaudada        string `json:"recaudada,omitempty"`
	Observacion      string `json:"observacion,omitempty"`
	Vigente          string `json:"vigente,omitempty"`
	PagoJL           string `json:"pago_jl,omitempty"`

	// Gestion holds manual follow-up notes entered by operators. It is
	// never overwritten by batch imports.
	Gestion string `json:"gestion,omitempty"`

	// Anulada tracks the void lifecycle: "no", "pendiente" (implicit,
	// set when the record disappears from an import), "confirmada"
	// (operator-confirmed), or a plain "si"/"sí" from legacy data.
	Anulada          string `json:"anulada,omitempty"`
	FechaPasoAnulada string `json:"fecha_paso_anulada,omitempty"`

	// ClaveBase is the natural key: normalized policy number plus
	// canonical emission date. ClaveUnica is ClaveBase with a
	// disambiguating suffix when collisions occur within a batch.
	ClaveBase  string `json:"clave_base,omitempty"`
	ClaveUnica string `json:"clave_unica,omitempty"`
}

// Clone returns a copy of the record. The engine mutates clones so callers
// keep their snapshots intact.
func (p *PolicyRecord) Clone() *PolicyRecord {
	c := *p
	return &c
}

// FinancedPolicy tracks a policy financed in installments and the
// milestones it moves through until the file is closed.
type FinancedPolicy struct {
	ID string `json:"id,omitempty"`

	Aseguradora string `json:"aseguradora,omitempty"`
	Nombre      string `json:"nombre,omitempty"`
	Poliza      string `json:"poliza,omitempty"`
	Valor       string `json:"valor,omitempty"`
	Cuotas      int    `json:"cuotas,omitempty"`
	Tipo        string `json:"tipo,omitempty"`

	Montada      bool `json:"montada"`
	Recaudada    bool `json:"recaudada"`
	Firmada      bool `json:"firmada"`
	Desembolsada bool `json:"desembolsada"`

	// Endoso is a tri-state: "" (not yet decided), "SI", or "NO". The
	// two document flags only apply when Endoso is "SI".
	Endoso        string `json:"endoso,omitempty"`
	Certificacion bool   `json:"certificacion"`
	CorreoEndoso  bool   `json:"correo_endoso"`

	Delegada  bool   `json:"delegada"`
	DelegadaA string `json:"delegada_a,omitempty"`

	Gestor       string    `json:"gestor,omitempty"`
	GestionTexto string    `json:"gestion_texto,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// FinancedType is the only Tipo value currently in use.
const FinancedType = "financiada"
