// Package engine computes the reconciliation diff between the existing
// portfolio and a freshly parsed import batch. Import is a pure function:
// it performs no I/O and returns the ordered writes for the caller to
// persist, so any failure handling and retry policy lives outside.
package engine

import (
	"fmt"
	"strings"
	"time"

	"cartera-reconciler/internal/batch"
	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/dates"
	"cartera-reconciler/internal/keys"
	"cartera-reconciler/internal/models"
)

// WriteOp discriminates the persistence operations an import produces.
type WriteOp string

const (
	OpCreate WriteOp = "create"
	OpUpdate WriteOp = "update"
)

// Write is one pending persistence operation. Updates carry the id of the
// existing document and the full merged record.
type Write struct {
	Op     WriteOp
	ID     string
	Record *models.PolicyRecord
}

// ImportResult tallies the diff outcome per category and lists the writes
// in the order they must be applied.
type ImportResult struct {
	FirstImport bool `json:"first_import"`

	CreatedNewPolicy        int `json:"created_new_policy"`
	CreatedNewByDate        int `json:"created_new_by_date"`
	Updated                 int `json:"updated"`
	SkippedNoKey            int `json:"skipped_no_key"`
	SkippedFrozen           int `json:"skipped_frozen"`
	TransitionedPending     int `json:"transitioned_pending"`
	AlreadyFrozenAndMissing int `json:"already_frozen_and_missing"`

	// MissingEmissionDate counts first-import rows created with the
	// date-less fallback key.
	MissingEmissionDate int `json:"missing_emission_date"`

	Writes []Write `json:"-"`
}

// TotalRows returns the number of batch rows that produced an outcome.
func (r *ImportResult) TotalRows() int {
	return r.CreatedNewPolicy + r.CreatedNewByDate + r.Updated + r.SkippedNoKey + r.SkippedFrozen
}

// Import diffs the batch against the existing record set. The existing
// slice is never mutated; updates reference clones. now feeds the
// void-transition timestamp and the unique-key suffix for new records.
//
// When the existing set is empty every row with a policy number becomes a
// create and no removal logic runs. Otherwise rows are matched by natural
// key: frozen matches are skipped untouched, other matches are merged
// field-by-field with non-empty incoming values winning, and unmatched
// rows become creates. A merge that leaves the record unchanged emits no
// write, so repeating a batch produces an empty diff. Existing records
// whose key the batch never produced transition to pending void unless
// already frozen.
func Import(existing []*models.PolicyRecord, rows []batch.Row, now time.Time) *ImportResult {
	if len(existing) == 0 {
		return firstImport(rows)
	}
	return reconcile(existing, rows, now)
}

func firstImport(rows []batch.Row) *ImportResult {
	result := &ImportResult{FirstImport: true}

	for i, row := range rows {
		pol := row.Text(batch.FieldPoliza)
		if pol == "" {
			result.SkippedNoKey++
			continue
		}

		feRaw := row.Value(batch.FieldFechaEmision)
		rec := recordFromRow(row, pol, feRaw)
		if rec.Vigente == "" {
			rec.Vigente = "si"
		}
		if rec.FechaEmision == "" {
			result.MissingEmissionDate++
		}

		rec.ClaveBase = keys.BuildKey(pol, feRaw)
		if rec.ClaveBase == "" {
			rec.ClaveBase = keys.TextKey(pol) + "_sinfechaemision"
		}
		rec.ClaveUnica = fmt.Sprintf("%s__fila_%d", rec.ClaveBase, i+1)

		result.Writes = append(result.Writes, Write{Op: OpCreate, Record: rec})
		result.CreatedNewPolicy++
	}
	return result
}

func reconcile(existing []*models.PolicyRecord, rows []batch.Row, now time.Time) *ImportResult {
	result := &ImportResult{}

	// First-seen wins when several existing records collide on a key.
	existingByKey := make(map[string]*models.PolicyRecord, len(existing))
	existingPolicies := make(map[string]bool, len(existing))
	for _, rec := range existing {
		if p := keys.TextKey(rec.Poliza); p != "" {
			existingPolicies[p] = true
		}
		key := recordKey(rec)
		if key == "" {
			continue
		}
		if _, dup := existingByKey[key]; !dup {
			existingByKey[key] = rec
		}
	}

	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		pol := row.Text(batch.FieldPoliza)
		feRaw := row.Value(batch.FieldFechaEmision)

		key := keys.BuildKey(pol, feRaw)
		if key == "" {
			result.SkippedNoKey++
			continue
		}

		// A key repeated within the batch is applied once, first wins.
		if seen[key] {
			continue
		}
		seen[key] = true

		prior := existingByKey[key]
		if prior != nil && classifier.IsFrozen(prior.Anulada) {
			result.SkippedFrozen++
			continue
		}

		merged := recordFromRow(row, pol, feRaw)
		merged.ClaveBase = key

		if prior != nil {
			mergeOverPrior(merged, prior)
			if merged.Vigente == "" {
				merged.Vigente = "si"
			}
			// A merge that changed nothing is dropped entirely, so
			// re-running the same batch yields an empty diff.
			if *merged == *prior {
				continue
			}
			result.Writes = append(result.Writes, Write{Op: OpUpdate, ID: prior.ID, Record: merged})
			result.Updated++
			continue
		}

		if merged.Vigente == "" {
			merged.Vigente = "si"
		}
		merged.ClaveUnica = fmt.Sprintf("%s__nuevo_%d", key, now.UnixMilli())
		result.Writes = append(result.Writes, Write{Op: OpCreate, Record: merged})

		pNorm := keys.TextKey(pol)
		if existingPolicies[pNorm] {
			result.CreatedNewByDate++
		} else {
			result.CreatedNewPolicy++
			if pNorm != "" {
				existingPolicies[pNorm] = true
			}
		}
	}

	// Everything the batch did not mention moves to pending void, except
	// records that are already frozen.
	for _, rec := range existing {
		key := recordKey(rec)
		if key == "" || seen[key] {
			continue
		}
		if classifier.IsFrozen(rec.Anulada) {
			result.AlreadyFrozenAndMissing++
			continue
		}

		pending := rec.Clone()
		pending.Anulada = models.VoidPending
		pending.Vigente = "no"
		pending.FechaPasoAnulada = now.Format(time.RFC3339)
		result.Writes = append(result.Writes, Write{Op: OpUpdate, ID: rec.ID, Record: pending})
		result.TransitionedPending++
	}

	return result
}

// recordKey returns the stored natural key, deriving it from the policy
// number and emission date when older records lack one.
func recordKey(rec *models.PolicyRecord) string {
	if rec.ClaveBase != "" {
		return rec.ClaveBase
	}
	return keys.BuildKey(rec.Poliza, rec.FechaEmision)
}

// recordFromRow builds a fresh record from resolved row fields. The
// record arrives active with an empty gestion; batches never write
// gestion.
func recordFromRow(row batch.Row, pol string, feRaw interface{}) *models.PolicyRecord {
	return &models.PolicyRecord{
		Aseguradora:      row.Text(batch.FieldAseguradora),
		Nombre:           row.Text(batch.FieldNombre),
		Asesor:           row.Text(batch.FieldAsesor),
		Placa:            row.Text(batch.FieldPlaca),
		Ramo:             row.Text(batch.FieldRamo),
		Poliza:           pol,
		FechaEmision:     dates.Normalize(feRaw),
		FechaVencimiento: dates.Normalize(row.Value(batch.FieldFechaVencimiento)),
		Valor:            row.Text(batch.FieldValor),
		Pendiente:        row.Text(batch.FieldPendiente),
		Recaudada:        row.Text(batch.FieldRecaudada),
		Observacion:      row.Text(batch.FieldObservacion),
		Vigente:          strings.ToLower(row.Text(batch.FieldVigente)),
		PagoJL:           row.Text(batch.FieldPagoJL),
		Anulada:          models.VoidNo,
	}
}

// mergeOverPrior fills empty incoming fields from the prior record and
// carries over the identity fields a batch must never change.
func mergeOverPrior(merged, prior *models.PolicyRecord) {
	fill(&merged.Aseguradora, prior.Aseguradora)
	fill(&merged.Nombre, prior.Nombre)
	fill(&merged.Asesor, prior.Asesor)
	fill(&merged.Placa, prior.Placa)
	fill(&merged.Ramo, prior.Ramo)
	fill(&merged.Poliza, prior.Poliza)
	fill(&merged.FechaEmision, prior.FechaEmision)
	fill(&merged.FechaVencimiento, prior.FechaVencimiento)
	fill(&merged.Valor, prior.Valor)
	fill(&merged.Pendiente, prior.Pendiente)
	fill(&merged.Recaudada, prior.Recaudada)
	fill(&merged.Observacion, prior.Observacion)
	fill(&merged.Vigente, prior.Vigente)
	fill(&merged.PagoJL, prior.PagoJL)

	merged.Gestion = prior.Gestion
	merged.ID = prior.ID
	merged.ClaveUnica = prior.ClaveUnica
	merged.FechaPasoAnulada = prior.FechaPasoAnulada
}

func fill(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
