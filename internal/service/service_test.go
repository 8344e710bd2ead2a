package service

import (
	"context"
	"testing"
	"time"

	"cartera-reconciler/internal/batch"
	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/models"
	"cartera-reconciler/internal/store"
	"cartera-reconciler/pkg/logger"
)

var fixedNow = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.MemStore) {
	t.Helper()
	ms := store.NewMemStore()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: logger.TextFormat, Output: logger.StderrOutput})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc := New(ms, log,
		WithClock(func() time.Time { return fixedNow }),
		WithFinanced(ms.Financed()),
	)
	return svc, ms
}

func importRows(t *testing.T, svc *Service, rows []batch.Row) *ImportSummary {
	t.Helper()
	summary, err := svc.RunImport(context.Background(), rows)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	return summary
}

func row(poliza, emision string) batch.Row {
	return batch.Row{"Poliza": poliza, "Fecha de emision": emision}
}

func TestRunImportEndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := importRows(t, svc, []batch.Row{
		row("AB-1", "2026-01-10"),
		row("CD-7", "2026-02-15"),
	})
	if first.CreatedNewPolicy != 2 || first.TotalAfter != 2 {
		t.Fatalf("first import: %+v", first)
	}

	// Second batch drops CD-7: it must move to pending void. AB-1 is
	// unchanged, so no update write fires for it.
	second := importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})
	if second.Updated != 0 || second.TransitionedPending != 1 {
		t.Fatalf("second import: %+v", second)
	}
	if second.VoidedAfter != 1 || second.ActiveAfter != 1 {
		t.Fatalf("audit counts: %+v", second)
	}

	all, _ := svc.ListAll(ctx)
	for _, rec := range all {
		if rec.Poliza == "CD-7" && rec.Anulada != models.VoidPending {
			t.Errorf("CD-7 anulada = %q, want pendiente", rec.Anulada)
		}
	}

	// Re-running the surviving batch is a no-op diff.
	third := importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})
	if third.CreatedNewPolicy+third.CreatedNewByDate != 0 || third.Updated != 0 || third.TransitionedPending != 0 {
		t.Fatalf("third import not idempotent: %+v", third)
	}
}

func TestManualLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})
	importRows(t, svc, nil) // empty batch voids everything

	all, _ := svc.ListAll(ctx)
	id := all[0].ID
	if all[0].Anulada != models.VoidPending {
		t.Fatalf("anulada = %q, want pendiente", all[0].Anulada)
	}

	if err := svc.ConfirmVoid(ctx, id); err != nil {
		t.Fatalf("ConfirmVoid: %v", err)
	}
	all, _ = svc.ListAll(ctx)
	if all[0].Anulada != models.VoidConfirmed {
		t.Errorf("anulada = %q, want confirmada", all[0].Anulada)
	}

	// Confirmed records survive further imports untouched.
	summary := importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})
	if summary.SkippedFrozen != 1 {
		t.Errorf("skipped_frozen = %d, want 1", summary.SkippedFrozen)
	}

	if err := svc.Reactivate(ctx, id); err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	all, _ = svc.ListAll(ctx)
	if all[0].Anulada != models.VoidNo || all[0].Vigente != "si" || all[0].FechaPasoAnulada != "" {
		t.Errorf("reactivated record %+v", all[0])
	}

	if err := svc.SaveGestion(ctx, id, false, "llamar cliente"); err != nil {
		t.Fatalf("SaveGestion: %v", err)
	}
	// gestion survives the next import
	importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})
	all, _ = svc.ListAll(ctx)
	if all[0].Gestion != "llamar cliente" {
		t.Errorf("gestion = %q after import", all[0].Gestion)
	}

	// marking the policy collected replaces the note with the sentinel
	if err := svc.SaveGestion(ctx, id, true, ""); err != nil {
		t.Fatalf("SaveGestion: %v", err)
	}
	all, _ = svc.ListAll(ctx)
	if all[0].Gestion != "si" {
		t.Errorf("gestion = %q, want si", all[0].Gestion)
	}

	if err := svc.DeletePolicy(ctx, id); err != nil {
		t.Fatalf("DeletePolicy: %v", err)
	}
	all, _ = svc.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("%d records left after delete", len(all))
	}
}

func TestPurgeWhere(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	importRows(t, svc, []batch.Row{
		row("AB-1", "2026-01-10"),
		row("CD-7", "2026-02-15"),
	})
	importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})

	n, err := svc.PurgeWhere(ctx, func(rec *models.PolicyRecord) bool {
		return rec.Anulada == models.VoidPending
	})
	if err != nil {
		t.Fatalf("PurgeWhere: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	all, _ := svc.ListAll(ctx)
	if len(all) != 1 || all[0].Poliza != "AB-1" {
		t.Errorf("unexpected survivors %+v", all)
	}
}

func TestComputeCounters(t *testing.T) {
	th := classifier.DefaultThresholds()
	records := []*models.PolicyRecord{
		{Poliza: "A", FechaEmision: "2026-03-20", Anulada: "no", Valor: "100"},     // current (19d)
		{Poliza: "B", FechaEmision: "2026-03-03", Anulada: "no", Valor: "200"},     // upcoming (2d)
		{Poliza: "C", FechaEmision: "2026-02-20", Anulada: "no", Valor: "50"},      // expired
		{Poliza: "D", FechaEmision: "2026-03-28", Anulada: "no"},                   // alert window (27d)
		{Poliza: "E", Anulada: "pendiente"},
		{Poliza: "F", Anulada: "confirmada"},
		{Poliza: "G", Anulada: "si"},
		{Poliza: "H", Anulada: "no", Gestion: "si"},
		{Poliza: "I", Anulada: "no", Gestion: "revisar pago"},
		{Poliza: "J", Anulada: "no", Valor: "(25)"},                                // credit balance
	}

	c := ComputeCounters(records, fixedNow, th)

	if c.Total != 10 || c.Voided != 3 || c.Active != 7 {
		t.Errorf("totals: %+v", c)
	}
	if c.PendingVoid != 1 || c.ConfirmedVoid != 1 {
		t.Errorf("void breakdown: %+v", c)
	}
	if c.Expired != 1 || c.Upcoming != 1 {
		t.Errorf("status breakdown: %+v", c)
	}
	if c.InAlertWindow != 1 {
		t.Errorf("alert window = %d, want 1", c.InAlertWindow)
	}
	if c.GestionResolved != 1 || c.GestionOpen != 1 {
		t.Errorf("gestion: %+v", c)
	}
	if c.ActiveAmount.String() != "325" {
		t.Errorf("active amount = %s, want 325", c.ActiveAmount)
	}
	if c.NegativeCount != 1 || c.NegativeAmount.String() != "-25" {
		t.Errorf("negatives: count %d amount %s", c.NegativeCount, c.NegativeAmount)
	}
}

func TestWatchCountersRecomputesPerSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps, stop, err := svc.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	counters := WatchCounters(snaps, func() time.Time { return fixedNow }, svc.Thresholds())

	// initial empty snapshot
	c := <-counters
	if c.Total != 0 {
		t.Fatalf("initial total = %d", c.Total)
	}

	importRows(t, svc, []batch.Row{row("AB-1", "2026-01-10")})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case c = <-counters:
			if c.Total == 1 {
				return
			}
		case <-deadline:
			t.Fatal("counters never reflected the import")
		}
	}
}

func TestFinancedWorkflow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddFinanced(ctx, &models.FinancedPolicy{Poliza: "AB-1", Endoso: "SI", Cuotas: 4})
	if err != nil {
		t.Fatalf("AddFinanced: %v", err)
	}

	policies, counters, err := svc.FinancedOverview(ctx)
	if err != nil {
		t.Fatalf("FinancedOverview: %v", err)
	}
	if counters.Total != 1 || counters.Red != 1 {
		t.Errorf("counters: %+v", counters)
	}
	if policies[0].Tipo != models.FinancedType {
		t.Errorf("tipo = %q", policies[0].Tipo)
	}
	if !policies[0].CreatedAt.Equal(fixedNow) {
		t.Errorf("created_at = %v", policies[0].CreatedAt)
	}

	p := policies[0]
	p.Montada, p.Recaudada, p.Firmada, p.Desembolsada = true, true, true, true
	if err := svc.UpdateFinanced(ctx, id, p); err != nil {
		t.Fatalf("UpdateFinanced: %v", err)
	}

	_, counters, _ = svc.FinancedOverview(ctx)
	if counters.Yellow != 1 || counters.CertPending != 1 {
		t.Errorf("after milestones: %+v", counters)
	}

	p.Certificacion, p.CorreoEndoso = true, true
	if err := svc.UpdateFinanced(ctx, id, p); err != nil {
		t.Fatal(err)
	}
	_, counters, _ = svc.FinancedOverview(ctx)
	if counters.Green != 1 {
		t.Errorf("after completion: %+v", counters)
	}

	if err := svc.DeleteFinanced(ctx, id); err != nil {
		t.Fatalf("DeleteFinanced: %v", err)
	}
	_, counters, _ = svc.FinancedOverview(ctx)
	if counters.Total != 0 {
		t.Errorf("total = %d after delete", counters.Total)
	}
}
