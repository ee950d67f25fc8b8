package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgTxKey struct{}

// PostgresStorage persists entries in a PostgreSQL table via pgx. The table
// is expected to match the shape shipped in pkg/pg/migrations. Safe for
// concurrent use; safety of the table name is the caller's responsibility
// (it is identifier-quoted, never interpolated raw).
type PostgresStorage struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStorage creates a storage over the given pool and table name.
func NewPostgresStorage(pool *pgxpool.Pool, table string) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNotAvailable
	}
	if table == "" {
		return nil, ErrEmptyTableName
	}
	return &PostgresStorage{pool: pool, table: table}, nil
}

// Append stores one entry.
func (s *PostgresStorage) Append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	var metadata []byte
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("ledger: marshal metadata: %w", err)
		}
		metadata = b
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, owner_type, owner_id, event, from_state, to_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.quotedTable())

	var err error
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		_, err = tx.Exec(ctx, query, entry.ID, entry.OwnerType, entry.OwnerID, entry.Event, entry.FromState, entry.ToState, metadata, entry.CreatedAt)
	} else {
		_, err = s.pool.Exec(ctx, query, entry.ID, entry.OwnerType, entry.OwnerID, entry.Event, entry.FromState, entry.ToState, metadata, entry.CreatedAt)
	}
	return err
}

// Query returns entries matching the criteria, most recent first.
func (s *PostgresStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	where, args := buildWhere(criteria)

	query := fmt.Sprintf(`SELECT id, owner_type, owner_id, event, from_state, to_state, metadata, created_at FROM %s%s ORDER BY created_at DESC`, s.quotedTable(), where)
	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows pgx.Rows
	var err error
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		rows, err = tx.Query(ctx, query, args...)
	} else {
		rows, err = s.pool.Query(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.OwnerType, &e.OwnerID, &e.Event, &e.FromState, &e.ToState, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("ledger: unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching the criteria.
func (s *PostgresStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	where, args := buildWhere(criteria)
	query := fmt.Sprintf(`SELECT count(*) FROM %s%s`, s.quotedTable(), where)

	var row pgx.Row
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		row = tx.QueryRow(ctx, query, args...)
	} else {
		row = s.pool.QueryRow(ctx, query, args...)
	}

	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// InTransaction runs fn inside a database transaction. The transaction is
// carried in the context so appends and any entity writes that resolve it
// through the same key commit or roll back together.
func (s *PostgresStorage) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested call reuses the outer transaction.
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// TxFromContext returns the transaction InTransaction placed in ctx, if
// any. Host persistence code can use it to join the engine's unit of work.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx)
	return tx, ok
}

func (s *PostgresStorage) quotedTable() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func buildWhere(criteria Criteria) (string, []any) {
	var conds []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if criteria.OwnerType != "" {
		add("owner_type", criteria.OwnerType)
	}
	if criteria.OwnerID != "" {
		add("owner_id", criteria.OwnerID)
	}
	if criteria.Event != "" {
		add("event", criteria.Event)
	}
	if criteria.FromState != "" {
		add("from_state", criteria.FromState)
	}
	if criteria.ToState != "" {
		add("to_state", criteria.ToState)
	}
	if !criteria.Since.IsZero() {
		args = append(args, criteria.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !criteria.Until.IsZero() {
		args = append(args, criteria.Until)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
