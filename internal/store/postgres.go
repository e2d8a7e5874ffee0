// Package store implements the keyed document store behind entitlement records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
)

const (
	selectDocument = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	selectDocumentForUpdate = `SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`

	upsertDocument = `INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

// PostgresStore keeps one JSONB document per (collection, id).
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "document-store"}),
		now:    time.Now,
	}
}

// Get returns the stored document. A missing row is DOCUMENT_NOT_FOUND.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, selectDocument, collection, id).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewDocumentNotFoundError(collection, id)
	}
	if err != nil {
		return nil, s.queryError("get", err)
	}

	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewQueryExecutionFailedError("decode document", err)
	}
	return doc, nil
}

// MergeSet merges partial into the stored document, creating it when absent.
// The read and write share one transaction with the row locked.
func (s *PostgresStore) MergeSet(ctx context.Context, collection, id string, partial map[string]interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	doc := map[string]interface{}{}
	var raw []byte
	err = tx.QueryRowContext(ctx, selectDocumentForUpdate, collection, id).Scan(&raw)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
	case err != nil:
		return s.queryError("lock", err)
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return errors.NewQueryExecutionFailedError("decode document", err)
		}
	}

	merged, err := json.Marshal(deepMerge(doc, partial))
	if err != nil {
		return errors.NewQueryExecutionFailedError("encode document", err)
	}

	if _, err := tx.ExecContext(ctx, upsertDocument, collection, id, merged, s.now().UTC()); err != nil {
		return s.queryError("upsert", err)
	}
	if err := tx.Commit(); err != nil {
		return s.queryError("commit", err)
	}

	s.logger.Debug("Document merged", map[string]interface{}{
		"collection": collection,
		"id":         id,
		"fields":     len(partial),
	})
	return nil
}

func (s *PostgresStore) queryError(op string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(op)
	}
	return errors.NewQueryExecutionFailedError(fmt.Sprintf("documents %s", op), err)
}
