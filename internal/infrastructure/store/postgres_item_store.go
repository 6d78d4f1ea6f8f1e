package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/marketplace-catalog/internal/domain/item"
)

// PostgresItemStore persists generic entities in two tables: items holds the
// identity and lifecycle columns, item_properties holds one row per named
// property with a kind tag and one populated value column.
type PostgresItemStore struct {
	db *sql.DB
}

func NewPostgresItemStore(db *sql.DB) *PostgresItemStore {
	return &PostgresItemStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction bound to the context when one is open, the pool
// otherwise. Every store method goes through it, so reads and writes inside
// InTx automatically share the transaction.
func (s *PostgresItemStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// InTx runs fn inside one transaction. An error matching one of the exempt
// sentinels is returned to the caller but still commits: a read miss after a
// write must not undo the write.
func (s *PostgresItemStore) InTx(ctx context.Context, exempt []error, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		// Already inside a transaction, just run.
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	fnErr := fn(context.WithValue(ctx, txKey{}, tx))

	if fnErr != nil && !isExempt(fnErr, exempt) {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", fnErr, rbErr)
		}
		return fnErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return fnErr
}

func isExempt(err error, exempt []error) bool {
	for _, e := range exempt {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (s *PostgresItemStore) Create(ctx context.Context, nodeID int64, typ item.Type, nameHint string) (*item.Item, error) {
	it := &item.Item{
		NodeID:    nodeID,
		Type:      typ,
		State:     item.StateActive,
		Name:      nameHint,
		CreatedAt: time.Now(),
		Props:     make(map[string]item.Value),
	}

	err := s.q(ctx).QueryRowContext(ctx,
		`INSERT INTO items (node_id, type, state, name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		nodeID, string(typ), int(it.State), nameHint, it.CreatedAt,
	).Scan(&it.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", item.ErrCreateFailed, err)
	}

	return it, nil
}

// IDsByType returns the ids of every item of the given type in the given
// states, in id order. Used by the reindex tool to walk the catalog.
func (s *PostgresItemStore) IDsByType(ctx context.Context, typ item.Type, states ...item.State) ([]int64, error) {
	ints := make([]int64, 0, len(states))
	for _, st := range states {
		ints = append(ints, int64(st))
	}

	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id FROM items WHERE type = $1 AND state = ANY($2) ORDER BY id`,
		string(typ), pq.Array(ints))
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", typ, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresItemStore) GetByID(ctx context.Context, id int64, fields item.Fields) (*item.Item, error) {
	return s.get(ctx, id, "", fields, nil)
}

func (s *PostgresItemStore) GetByIDAndType(ctx context.Context, id int64, typ item.Type, fields item.Fields, pred *item.Predicate) (*item.Item, error) {
	return s.get(ctx, id, typ, fields, pred)
}

func (s *PostgresItemStore) get(ctx context.Context, id int64, typ item.Type, fields item.Fields, pred *item.Predicate) (*item.Item, error) {
	query := `SELECT id, node_id, type, state, name, created_at FROM items WHERE id = $1`
	args := []any{id}
	if typ != "" {
		query += ` AND type = $2`
		args = append(args, string(typ))
	}

	it := &item.Item{Props: make(map[string]item.Value)}
	var state int
	var typRaw string

	err := s.q(ctx).QueryRowContext(ctx, query, args...).
		Scan(&it.ID, &it.NodeID, &typRaw, &state, &it.Name, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, item.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}

	it.Type = item.Type(typRaw)
	it.State = item.State(state)

	if !pred.Matches(it.State) {
		return nil, item.ErrNotFound
	}

	if err := s.loadProperties(ctx, it, fields); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *PostgresItemStore) loadProperties(ctx context.Context, it *item.Item, fields item.Fields) error {
	if !fields.All && len(fields.Names) == 0 {
		return nil
	}

	query := `SELECT name, kind, str_value, int_value, ref_id, ref_ids
	          FROM item_properties WHERE item_id = $1`
	args := []any{it.ID}
	if !fields.All {
		query += ` AND name = ANY($2)`
		args = append(args, pq.Array(fields.Names))
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("fetch properties of item %d: %w", it.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name   string
			kind   int
			str    sql.NullString
			num    sql.NullInt64
			refID  sql.NullInt64
			refIDs pq.Int64Array
		)
		if err := rows.Scan(&name, &kind, &str, &num, &refID, &refIDs); err != nil {
			return fmt.Errorf("scan property of item %d: %w", it.ID, err)
		}

		switch item.ValueKind(kind) {
		case item.KindString:
			it.Props[name] = item.StringValue(str.String)
		case item.KindInt:
			it.Props[name] = item.IntValue(num.Int64)
		case item.KindRef:
			it.Props[name] = item.RefValue(refID.Int64)
		case item.KindRefList:
			it.Props[name] = item.RefListValue(refIDs)
		}
	}
	return rows.Err()
}

func (s *PostgresItemStore) SetState(ctx context.Context, id int64, st item.State) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE items SET state = $2 WHERE id = $1`, id, int(st))
	if err != nil {
		return fmt.Errorf("set state of item %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return item.ErrNotFound
	}
	return nil
}

func (s *PostgresItemStore) SaveProperties(ctx context.Context, id int64, clearFirst bool, props ...item.Property) error {
	q := s.q(ctx)

	if clearFirst {
		if _, err := q.ExecContext(ctx,
			`DELETE FROM item_properties WHERE item_id = $1`, id); err != nil {
			return fmt.Errorf("clear properties of item %d: %w", id, err)
		}
	}

	for _, p := range props {
		var (
			str    sql.NullString
			num    sql.NullInt64
			refID  sql.NullInt64
			refIDs any
		)
		switch p.Value.Kind {
		case item.KindString:
			str = sql.NullString{String: p.Value.Str, Valid: true}
		case item.KindInt:
			num = sql.NullInt64{Int64: p.Value.Int, Valid: true}
		case item.KindRef:
			refID = sql.NullInt64{Int64: p.Value.Ref.ID, Valid: true}
		case item.KindRefList:
			refIDs = pq.Array(p.Value.RefIDs())
		}

		_, err := q.ExecContext(ctx,
			`INSERT INTO item_properties (item_id, name, kind, str_value, int_value, ref_id, ref_ids)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (item_id, name) DO UPDATE SET
			   kind = EXCLUDED.kind,
			   str_value = EXCLUDED.str_value,
			   int_value = EXCLUDED.int_value,
			   ref_id = EXCLUDED.ref_id,
			   ref_ids = EXCLUDED.ref_ids`,
			id, p.Name, int(p.Value.Kind), str, num, refID, refIDs,
		)
		if err != nil {
			return fmt.Errorf("save property %q of item %d: %w", p.Name, id, err)
		}
	}
	return nil
}

func (s *PostgresItemStore) ClearPropertiesByPrefix(ctx context.Context, id int64, prefix string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM item_properties WHERE item_id = $1 AND name LIKE $2 || '%'`,
		id, prefix)
	if err != nil {
		return fmt.Errorf("clear properties of item %d by prefix %q: %w", id, prefix, err)
	}
	return nil
}

func (s *PostgresItemStore) ClearProperty(ctx context.Context, id int64, name string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM item_properties WHERE item_id = $1 AND name = $2`,
		id, name)
	if err != nil {
		return fmt.Errorf("clear property %q of item %d: %w", name, id, err)
	}
	return nil
}
