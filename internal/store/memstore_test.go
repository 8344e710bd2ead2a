package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cartera-reconciler/internal/models"

	carterrors "cartera-reconciler/pkg/errors"
)

func TestMemStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	id, err := s.Create(ctx, &models.PolicyRecord{Poliza: "AB-1", Valor: "100"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty id")
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || all[0].Poliza != "AB-1" {
		t.Fatalf("unexpected snapshot %+v", all)
	}

	if err := s.Update(ctx, id, &models.PolicyRecord{Poliza: "AB-1", Valor: "250"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, _ = s.ListAll(ctx)
	if all[0].Valor != "250" {
		t.Errorf("valor = %q after update", all[0].Valor)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ = s.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("store not empty after delete")
	}
}

func TestMemStoreUpdateMissing(t *testing.T) {
	s := NewMemStore()
	err := s.Update(context.Background(), "nope", &models.PolicyRecord{})
	if err == nil {
		t.Fatal("expected error for missing id")
	}
	ce, ok := carterrors.AsCarteraError(err)
	if !ok || ce.Code != carterrors.CodeDocumentMissing {
		t.Errorf("unexpected error %v", err)
	}
}

func TestMemStoreSnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	id, _ := s.Create(ctx, &models.PolicyRecord{Poliza: "AB-1"})

	all, _ := s.ListAll(ctx)
	all[0].Poliza = "mutated"

	again, _ := s.ListAll(ctx)
	if again[0].Poliza != "AB-1" {
		t.Errorf("snapshot mutation leaked into store: %q", again[0].Poliza)
	}
	_ = id
}

func TestMemStoreBatchDeleteChunks(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	ids := make([]string, 0, DeleteChunkSize+10)
	for i := 0; i < DeleteChunkSize+10; i++ {
		id, err := s.Create(ctx, &models.PolicyRecord{Poliza: fmt.Sprintf("P-%d", i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	if err := s.BatchDelete(ctx, ids); err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	all, _ := s.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("%d records left after batch delete", len(all))
	}
}

func TestChunk(t *testing.T) {
	ids := make([]string, DeleteChunkSize*2+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	chunks := Chunk(ids)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != DeleteChunkSize || len(chunks[2]) != 1 {
		t.Errorf("chunk sizes %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if Chunk(nil) != nil {
		t.Error("Chunk(nil) should be nil")
	}
}

func TestMemStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	ch, stop, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	// initial snapshot
	select {
	case snap := <-ch:
		if len(snap) != 0 {
			t.Errorf("initial snapshot has %d records", len(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	if _, err := s.Create(ctx, &models.PolicyRecord{Poliza: "AB-1"}); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-ch:
		if len(snap) != 1 || snap[0].Poliza != "AB-1" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}

	stop()
	if _, ok := <-ch; ok {
		// a pending snapshot may still be buffered; the channel must
		// close eventually
		if _, ok := <-ch; ok {
			t.Error("channel still open after stop")
		}
	}
}

func TestMemStoreFinanced(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	fs := s.Financed()

	id, err := fs.Create(ctx, &models.FinancedPolicy{Poliza: "AB-1", Endoso: "SI", Cuotas: 4})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := fs.ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll: %v, %d records", err, len(all))
	}

	p := all[0]
	p.Montada = true
	if err := fs.Update(ctx, id, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, _ = fs.ListAll(ctx)
	if !all[0].Montada {
		t.Error("update not persisted")
	}

	if err := fs.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ = fs.ListAll(ctx)
	if len(all) != 0 {
		t.Error("financed record left after delete")
	}
}
