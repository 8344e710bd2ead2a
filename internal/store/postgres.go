package store

import (
	"context"
	"encoding/json"
	"time"

	"cartera-reconciler/internal/models"
	carterrors "cartera-reconciler/pkg/errors"
	"cartera-reconciler/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	carteraTable  = "cartera"
	financedTable = "polizas_financiadas"
	notifyChannel = "cartera_changed"
)

const schema = `
CREATE TABLE IF NOT EXISTS cartera (
	id  UUID PRIMARY KEY,
	doc JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS polizas_financiadas (
	id  UUID PRIMARY KEY,
	doc JSONB NOT NULL
);`

// PGStore persists records as JSONB documents in Postgres and uses
// LISTEN/NOTIFY for live snapshot subscriptions.
type PGStore struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPGStore connects, verifies the connection, and ensures the schema.
func NewPGStore(ctx context.Context, dsn string, log logger.Logger) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err).
			WithSuggestion("check that the database user may create tables")
	}
	return &PGStore{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) ListAll(ctx context.Context) ([]*models.PolicyRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, doc FROM cartera ORDER BY id`)
	if err != nil {
		return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err)
	}
	defer rows.Close()

	var out []*models.PolicyRecord
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, id, err)
		}
		rec := &models.PolicyRecord{}
		if err := json.Unmarshal(doc, rec); err != nil {
			s.log.WithField("id", id).WithError(err).Warn("Skipping undecodable record")
			continue
		}
		rec.ID = id
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err)
	}
	return out, nil
}

func (s *PGStore) Create(ctx context.Context, rec *models.PolicyRecord) (string, error) {
	id := uuid.NewString()
	doc, err := marshalDoc(rec)
	if err != nil {
		return "", err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO cartera (id, doc) VALUES ($1, $2)`, id, doc); err != nil {
		return "", carterrors.PersistenceError(carterrors.CodeWriteRejected, carteraTable, id, err)
	}
	s.notify(ctx)
	return id, nil
}

func (s *PGStore) Update(ctx context.Context, id string, rec *models.PolicyRecord) error {
	doc, err := marshalDoc(rec)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE cartera SET doc = $2 WHERE id = $1`, id, doc)
	if err != nil {
		return carterrors.PersistenceError(carterrors.CodeWriteRejected, carteraTable, id, err)
	}
	if tag.RowsAffected() == 0 {
		return carterrors.PersistenceError(carterrors.CodeDocumentMissing, carteraTable, id, nil)
	}
	s.notify(ctx)
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cartera WHERE id = $1`, id); err != nil {
		return carterrors.PersistenceError(carterrors.CodeWriteRejected, carteraTable, id, err)
	}
	s.notify(ctx)
	return nil
}

func (s *PGStore) BatchDelete(ctx context.Context, ids []string) error {
	chunks := Chunk(ids)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM cartera WHERE id = ANY($1)`, chunk); err != nil {
			return carterrors.PersistenceError(carterrors.CodeBatchFailed, carteraTable, "", err).
				WithContext("chunk", i).
				WithContext("chunk_size", len(chunk))
		}
		if i < len(chunks)-1 {
			select {
			case <-time.After(ChunkPause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	s.notify(ctx)
	return nil
}

// Subscribe listens on the notify channel with a dedicated connection and
// pushes a full ListAll snapshot for every change, coalescing bursts into
// the latest state.
func (s *PGStore) Subscribe(ctx context.Context) (<-chan []*models.PolicyRecord, func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err)
	}
	if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
		conn.Release()
		return nil, nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, carteraTable, "", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan []*models.PolicyRecord, 1)

	go func() {
		defer close(ch)
		defer conn.Release()

		push := func() {
			snap, err := s.ListAll(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					s.log.WithError(err).Warn("Snapshot refresh failed")
				}
				return
			}
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

		push()
		for {
			if _, err := conn.Conn().WaitForNotification(subCtx); err != nil {
				return
			}
			push()
		}
	}()

	return ch, cancel, nil
}

func (s *PGStore) notify(ctx context.Context) {
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, '')`, notifyChannel); err != nil {
		s.log.WithError(err).Debug("Change notification failed")
	}
}

func marshalDoc(v interface{}) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"failed to encode document")
	}
	return doc, nil
}

// Financed returns the financed-policy view of the store.
func (s *PGStore) Financed() FinancedStore { return pgFinanced{s} }

type pgFinanced struct{ s *PGStore }

func (f pgFinanced) ListAll(ctx context.Context) ([]*models.FinancedPolicy, error) {
	rows, err := f.s.pool.Query(ctx, `SELECT id, doc FROM polizas_financiadas ORDER BY id`)
	if err != nil {
		return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, financedTable, "", err)
	}
	defer rows.Close()

	var out []*models.FinancedPolicy
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, carterrors.PersistenceError(carterrors.CodeConnectionFailed, financedTable, id, err)
		}
		p := &models.FinancedPolicy{}
		if err := json.Unmarshal(doc, p); err != nil {
			f.s.log.WithField("id", id).WithError(err).Warn("Skipping undecodable financed record")
			continue
		}
		p.ID = id
		out = append(out, p)
	}
	return out, rows.Err()
}

func (f pgFinanced) Create(ctx context.Context, p *models.FinancedPolicy) (string, error) {
	id := uuid.NewString()
	doc, err := marshalDoc(p)
	if err != nil {
		return "", err
	}
	if _, err := f.s.pool.Exec(ctx,
		`INSERT INTO polizas_financiadas (id, doc) VALUES ($1, $2)`, id, doc); err != nil {
		return "", carterrors.PersistenceError(carterrors.CodeWriteRejected, financedTable, id, err)
	}
	return id, nil
}

func (f pgFinanced) Update(ctx context.Context, id string, p *models.FinancedPolicy) error {
	doc, err := marshalDoc(p)
	if err != nil {
		return err
	}
	tag, err := f.s.pool.Exec(ctx,
		`UPDATE polizas_financiadas SET doc = $2 WHERE id = $1`, id, doc)
	if err != nil {
		return carterrors.PersistenceError(carterrors.CodeWriteRejected, financedTable, id, err)
	}
	if tag.RowsAffected() == 0 {
		return carterrors.PersistenceError(carterrors.CodeDocumentMissing, financedTable, id, nil)
	}
	return nil
}

func (f pgFinanced) Delete(ctx context.Context, id string) error {
	if _, err := f.s.pool.Exec(ctx, `DELETE FROM polizas_financiadas WHERE id = $1`, id); err != nil {
		return carterrors.PersistenceError(carterrors.CodeWriteRejected, financedTable, id, err)
	}
	return nil
}
