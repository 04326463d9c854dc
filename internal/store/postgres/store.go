// Package postgres stores ledger documents as JSONB rows in a single table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-ledger/internal/store"
)

const uniqueViolation = "23505"

var _ store.Store = (*Store)(nil)

// Store implements store.Store over ledger_documents.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the document table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ledger/postgres: migrate: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type row struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

func (s *Store) Create(ctx context.Context, collection, id string, doc store.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("ledger/postgres: encode %s/%s: %w", collection, id, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO ledger_documents (collection, id, data) VALUES ($1, $2, $3)`, collection, id, payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("%s/%s: %w", collection, id, store.ErrAlreadyExists)
		}
		return fmt.Errorf("ledger/postgres: create %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT data FROM ledger_documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("ledger/postgres: get %s/%s: %w", collection, id, err)
	}
	return decode(raw)
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Snapshot, error) {
	where, args, err := conditions(q.Filters, []interface{}{collection})
	if err != nil {
		return nil, err
	}
	query := "SELECT id, data FROM ledger_documents WHERE collection = $1"
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	orderBy, err := ordering(q.OrderBy)
	if err != nil {
		return nil, err
	}
	query += " ORDER BY " + orderBy
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("ledger/postgres: query %s: %w", collection, err)
	}
	out := make([]store.Snapshot, 0, len(rows))
	for _, r := range rows {
		doc, err := decode(r.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Snapshot{ID: r.ID, Data: doc})
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Document) error {
	return update(ctx, s.db, store.Write{Kind: store.KindUpdate, Collection: collection, ID: id, Doc: fields})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("ledger/postgres: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Batch() store.Batch {
	return &batch{db: s.db}
}

type batch struct {
	store.Writes
	db *sqlx.DB
}

// Commit applies every queued write inside one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if b.Len() == 0 {
		return nil
	}
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger/postgres: begin batch: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	for _, op := range b.Ops {
		switch op.Kind {
		case store.KindSet:
			err = set(ctx, tx, op)
		case store.KindUpdate:
			err = update(ctx, tx, op)
		case store.KindDelete:
			_, err = tx.ExecContext(ctx, `DELETE FROM ledger_documents WHERE collection = $1 AND id = $2`, op.Collection, op.ID)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger/postgres: commit batch: %w", err)
	}
	commit = true
	return nil
}

func set(ctx context.Context, ex execer, op store.Write) error {
	payload, err := json.Marshal(op.Doc)
	if err != nil {
		return fmt.Errorf("ledger/postgres: encode %s/%s: %w", op.Collection, op.ID, err)
	}
	conflict := "data = EXCLUDED.data"
	if op.Merge {
		conflict = "data = ledger_documents.data || EXCLUDED.data"
	}
	query := `INSERT INTO ledger_documents (collection, id, data) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET ` + conflict + `, updated_at = NOW()`
	if _, err := ex.ExecContext(ctx, query, op.Collection, op.ID, payload); err != nil {
		return fmt.Errorf("ledger/postgres: set %s/%s: %w", op.Collection, op.ID, err)
	}
	return nil
}

func update(ctx context.Context, ex execer, op store.Write) error {
	payload, err := json.Marshal(op.Doc)
	if err != nil {
		return fmt.Errorf("ledger/postgres: encode %s/%s: %w", op.Collection, op.ID, err)
	}
	where, args, err := conditions(op.Preconditions, []interface{}{op.Collection, op.ID, payload})
	if err != nil {
		return err
	}
	query := `UPDATE ledger_documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ledger/postgres: update %s/%s: %w", op.Collection, op.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger/postgres: update %s/%s: %w", op.Collection, op.ID, err)
	}
	if affected == 0 {
		if len(op.Preconditions) > 0 {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrPreconditionFailed)
		}
		return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrNotFound)
	}
	return nil
}

// conditions renders filters as SQL predicates numbered after the given args.
func conditions(filters []store.Filter, args []interface{}) ([]string, []interface{}, error) {
	where := make([]string, 0, len(filters))
	for _, f := range filters {
		if err := store.ValidateField(f.Field); err != nil {
			return nil, nil, err
		}
		if f.Op == store.OpIn {
			values := make([]string, 0)
			switch v := f.Value.(type) {
			case []string:
				values = append(values, v...)
			case []interface{}:
				for _, item := range v {
					values = append(values, fmt.Sprint(item))
				}
			default:
				values = append(values, fmt.Sprint(v))
			}
			args = append(args, pq.Array(values))
			where = append(where, fmt.Sprintf("data->>'%s' = ANY($%d)", f.Field, len(args)))
			continue
		}
		op, err := sqlOperator(f.Op)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, f.Value)
		placeholder := len(args)
		switch f.Value.(type) {
		case string:
			where = append(where, fmt.Sprintf(`(data->>'%s') COLLATE "C" %s $%d`, f.Field, op, placeholder))
		case bool:
			where = append(where, fmt.Sprintf("(data->>'%s')::boolean %s $%d", f.Field, op, placeholder))
		case int, int32, int64, float64:
			where = append(where, fmt.Sprintf("(data->>'%s')::numeric %s $%d", f.Field, op, placeholder))
		default:
			return nil, nil, fmt.Errorf("ledger/postgres: unsupported filter value %T for %s", f.Value, f.Field)
		}
	}
	return where, args, nil
}

func sqlOperator(op store.Op) (string, error) {
	switch op {
	case store.OpEq:
		return "=", nil
	case store.OpLt:
		return "<", nil
	case store.OpLte:
		return "<=", nil
	case store.OpGt:
		return ">", nil
	case store.OpGte:
		return ">=", nil
	default:
		return "", fmt.Errorf("ledger/postgres: unsupported operator %q", op)
	}
}

func ordering(orders []store.Order) (string, error) {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		if err := store.ValidateField(o.Field); err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf(`(data->>'%s') COLLATE "C" %s`, o.Field, dir))
	}
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", "), nil
}

func decode(raw []byte) (store.Document, error) {
	doc := store.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ledger/postgres: decode document: %w", err)
	}
	return doc, nil
}
