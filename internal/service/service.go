// Package service wires the pure reconciliation engine to the store: it
// runs imports with per-row failure isolation, exposes the manual
// lifecycle operations, and recomputes portfolio counters from snapshots.
package service

import (
	"context"
	"time"

	"cartera-reconciler/internal/batch"
	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/engine"
	"cartera-reconciler/internal/models"
	"cartera-reconciler/internal/store"
	carterrors "cartera-reconciler/pkg/errors"
	"cartera-reconciler/pkg/logger"
)

// Service coordinates imports and manual operations over one portfolio.
type Service struct {
	store      store.Store
	financed   store.FinancedStore
	log        logger.Logger
	thresholds classifier.Thresholds
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithThresholds overrides the default day thresholds.
func WithThresholds(th classifier.Thresholds) Option {
	return func(s *Service) { s.thresholds = th }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFinanced attaches the financed-policy collection.
func WithFinanced(fs store.FinancedStore) Option {
	return func(s *Service) { s.financed = fs }
}

// New builds a Service over the given store.
func New(st store.Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		log:        log,
		thresholds: classifier.DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the configured day thresholds.
func (s *Service) Thresholds() classifier.Thresholds { return s.thresholds }

// RowFailure records one store write the import could not apply.
type RowFailure struct {
	Op    engine.WriteOp `json:"op"`
	Key   string         `json:"key"`
	Error string         `json:"error"`
}

// ImportSummary is the operator-facing outcome of one import run: the
// engine tally, the write failures, and before/after audit counts.
type ImportSummary struct {
	*engine.ImportResult

	Failures []RowFailure `json:"failures,omitempty"`

	TotalBefore  int `json:"total_before"`
	VoidedBefore int `json:"voided_before"`
	TotalAfter   int `json:"total_after"`
	VoidedAfter  int `json:"voided_after"`
	ActiveAfter  int `json:"active_after"`
}

// RunImport reconciles a parsed batch against the current portfolio and
// persists the resulting writes in order. A failed write is recorded and
// the run continues; re-running the same batch converges, so partial
// failures are retried by importing again.
func (s *Service) RunImport(ctx context.Context, rows []batch.Row) (*ImportSummary, error) {
	existing, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{TotalBefore: len(existing)}
	for _, rec := range existing {
		if classifier.IsVoid(rec.Anulada) {
			summary.VoidedBefore++
		}
	}

	result := engine.Import(existing, rows, s.now())
	summary.ImportResult = result

	s.log.WithFields(logger.Fields{
		"rows":     len(rows),
		"existing": len(existing),
		"writes":   len(result.Writes),
		"first":    result.FirstImport,
	}).Info("Applying reconciliation writes")

	for _, w := range result.Writes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.applyWrite(ctx, w); err != nil {
			summary.Failures = append(summary.Failures, RowFailure{
				Op:    w.Op,
				Key:   w.Record.ClaveBase,
				Error: err.Error(),
			})
			s.log.WithError(err).WithField("key", w.Record.ClaveBase).Warn("Write failed, continuing")
		}
	}

	after, err := s.store.ListAll(ctx)
	if err != nil {
		return summary, err
	}
	summary.TotalAfter = len(after)
	for _, rec := range after {
		if classifier.IsVoid(rec.Anulada) {
			summary.VoidedAfter++
		}
	}
	summary.ActiveAfter = summary.TotalAfter - summary.VoidedAfter

	return summary, nil
}

// DryRun computes the diff a batch would produce without persisting
// anything.
func (s *Service) DryRun(ctx context.Context, rows []batch.Row) (*engine.ImportResult, error) {
	existing, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Import(existing, rows, s.now()), nil
}

func (s *Service) applyWrite(ctx context.Context, w engine.Write) error {
	switch w.Op {
	case engine.OpCreate:
		_, err := s.store.Create(ctx, w.Record)
		return err
	case engine.OpUpdate:
		return s.store.Update(ctx, w.ID, w.Record)
	default:
		return carterrors.New(carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"unknown write op "+string(w.Op))
	}
}

// ConfirmVoid finalizes a record's void state. Intended for records in
// pending state but accepted from any state.
func (s *Service) ConfirmVoid(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(rec *models.PolicyRecord) {
		rec.Anulada = models.VoidConfirmed
		rec.Vigente = "no"
		if rec.FechaPasoAnulada == "" {
			rec.FechaPasoAnulada = s.now().Format(time.RFC3339)
		}
	})
}

// Reactivate returns a voided record to active state and clears the void
// bookkeeping.
func (s *Service) Reactivate(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(rec *models.PolicyRecord) {
		rec.Anulada = models.VoidNo
		rec.Vigente = "si"
		rec.FechaPasoAnulada = ""
	})
}

// SaveGestion stores the management outcome: the resolved sentinel when
// collected, otherwise the free-text note. Imports never touch this
// field, so the value survives any number of batches.
func (s *Service) SaveGestion(ctx context.Context, id string, collected bool, note string) error {
	return s.mutate(ctx, id, func(rec *models.PolicyRecord) {
		if collected {
			rec.Gestion = "si"
			return
		}
		rec.Gestion = note
	})
}

// DeletePolicy permanently removes a record. Irreversible; deleting an
// already-deleted id is a no-op.
func (s *Service) DeletePolicy(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// PurgeWhere batch-deletes every record matching the predicate and
// returns how many were removed.
func (s *Service) PurgeWhere(ctx context.Context, match func(*models.PolicyRecord) bool) (int, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, rec := range all {
		if match(rec) {
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.store.BatchDelete(ctx, ids); err != nil {
		return 0, err
	}
	s.log.WithField("deleted", len(ids)).Info("Purged records")
	return len(ids), nil
}

func (s *Service) mutate(ctx context.Context, id string, apply func(*models.PolicyRecord)) error {
	rec, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	updated := rec.Clone()
	apply(updated)
	return s.store.Update(ctx, id, updated)
}

func (s *Service) findByID(ctx context.Context, id string) (*models.PolicyRecord, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, carterrors.PersistenceError(carterrors.CodeDocumentMissing, "cartera", id, nil)
}

// ListAll exposes the current portfolio snapshot.
func (s *Service) ListAll(ctx context.Context) ([]*models.PolicyRecord, error) {
	return s.store.ListAll(ctx)
}

// Subscribe exposes live portfolio snapshots.
func (s *Service) Subscribe(ctx context.Context) (<-chan []*models.PolicyRecord, func(), error) {
	return s.store.Subscribe(ctx)
}
