package store

import (
	"context"
	"sort"
	"sync"

	"cartera-reconciler/internal/models"
	carterrors "cartera-reconciler/pkg/errors"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store and FinancedStore. It is safe for
// concurrent use and suitable for tests and single-process deployments.
type MemStore struct {
	mu       sync.RWMutex
	records  map[string]*models.PolicyRecord
	financed map[string]*models.FinancedPolicy

	subMu   sync.Mutex
	subs    map[int]chan []*models.PolicyRecord
	nextSub int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records:  make(map[string]*models.PolicyRecord),
		financed: make(map[string]*models.FinancedPolicy),
		subs:     make(map[int]chan []*models.PolicyRecord),
	}
}

func (s *MemStore) ListAll(ctx context.Context) ([]*models.PolicyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// snapshotLocked copies records sorted by id for deterministic iteration.
func (s *MemStore) snapshotLocked() []*models.PolicyRecord {
	out := make([]*models.PolicyRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) Create(ctx context.Context, rec *models.PolicyRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	s.mu.Lock()
	c := rec.Clone()
	c.ID = id
	s.records[id] = c
	s.mu.Unlock()

	s.notify()
	return id, nil
}

func (s *MemStore) Update(ctx context.Context, id string, rec *models.PolicyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return carterrors.PersistenceError(carterrors.CodeDocumentMissing, "cartera", id, nil)
	}
	c := rec.Clone()
	c.ID = id
	s.records[id] = c
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *MemStore) BatchDelete(ctx context.Context, ids []string) error {
	for _, chunk := range Chunk(ids) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		for _, id := range chunk {
			delete(s.records, id)
		}
		s.mu.Unlock()
		s.notify()
	}
	return nil
}

func (s *MemStore) Subscribe(ctx context.Context) (<-chan []*models.PolicyRecord, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ch := make(chan []*models.PolicyRecord, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	// initial snapshot so consumers start with current state
	s.mu.RLock()
	ch <- s.snapshotLocked()
	s.mu.RUnlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}

// notify pushes a fresh snapshot to every subscriber. A slow consumer's
// stale pending snapshot is replaced rather than blocking the writer.
func (s *MemStore) notify() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Financed collection.

func (s *MemStore) ListFinanced(ctx context.Context) ([]*models.FinancedPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.FinancedPolicy, 0, len(s.financed))
	for _, p := range s.financed {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) CreateFinanced(ctx context.Context, p *models.FinancedPolicy) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	c := *p
	c.ID = id
	s.financed[id] = &c
	s.mu.Unlock()
	return id, nil
}

func (s *MemStore) UpdateFinanced(ctx context.Context, id string, p *models.FinancedPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.financed[id]; !ok {
		return carterrors.PersistenceError(carterrors.CodeDocumentMissing, "polizas_financiadas", id, nil)
	}
	c := *p
	c.ID = id
	s.financed[id] = &c
	return nil
}

func (s *MemStore) DeleteFinanced(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.financed, id)
	return nil
}

// financedAdapter exposes the financed collection through FinancedStore.
type financedAdapter struct{ s *MemStore }

// Financed returns the financed-policy view of the store.
func (s *MemStore) Financed() FinancedStore { return financedAdapter{s} }

func (a financedAdapter) ListAll(ctx context.Context) ([]*models.FinancedPolicy, error) {
	return a.s.ListFinanced(ctx)
}

func (a financedAdapter) Create(ctx context.Context, p *models.FinancedPolicy) (string, error) {
	return a.s.CreateFinanced(ctx, p)
}

func (a financedAdapter) Update(ctx context.Context, id string, p *models.FinancedPolicy) error {
	return a.s.UpdateFinanced(ctx, id, p)
}

func (a financedAdapter) Delete(ctx context.Context, id string) error {
	return a.s.DeleteFinanced(ctx, id)
}
