package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"invsync/internal/errors"
	"invsync/internal/inventory"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS inventory_sync (
	id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	mode       TEXT NOT NULL,
	synced_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS inventory_records (
	position      INTEGER PRIMARY KEY,
	date          TEXT NOT NULL,
	branch_name   TEXT NOT NULL,
	device_name   TEXT NOT NULL,
	stock_in      BIGINT NOT NULL CHECK (stock_in >= 0),
	stock_out     BIGINT NOT NULL CHECK (stock_out >= 0),
	current_count BIGINT NOT NULL CHECK (current_count >= 0),
	remarks       TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	UNIQUE (date, branch_name, device_name)
);
-- Quantities are Go ints; tables created with INTEGER columns are widened.
ALTER TABLE inventory_records
	ALTER COLUMN stock_in TYPE BIGINT,
	ALTER COLUMN stock_out TYPE BIGINT,
	ALTER COLUMN current_count TYPE BIGINT;`

var recordColumns = []string{
	"position", "date", "branch_name", "device_name",
	"stock_in", "stock_out", "current_count", "remarks", "category",
}

// PostgresStore keeps the snapshot in two PostgreSQL tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.NewConfigError("postgres store requires a DSN", nil)
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewConfigError("failed to parse database config", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.NewStorageError("failed to create connection pool", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, errors.NewStorageError("failed to ensure schema", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Replace deletes the previous snapshot and copies the new one in a single
// transaction.
func (p *PostgresStore) Replace(ctx context.Context, snap Snapshot) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM inventory_records`); err != nil {
		return errors.NewStorageError("failed to clear records", err)
	}

	rows := make([][]any, len(snap.Records))
	for i, r := range snap.Records {
		rows[i] = []any{i, r.Date, r.BranchName, r.DeviceName, r.StockIn, r.StockOut, r.CurrentCount, r.Remarks, string(r.Category)}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"inventory_records"}, recordColumns, pgx.CopyFromRows(rows)); err != nil {
		return errors.NewStorageError("failed to copy records", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO inventory_sync (id, mode, synced_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET mode = EXCLUDED.mode, synced_at = EXCLUDED.synced_at`,
		snap.Mode, snap.SyncedAt.UTC())
	if err != nil {
		return errors.NewStorageError("failed to record sync", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStorageError("failed to commit snapshot", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := p.pool.QueryRow(ctx, `SELECT mode, synced_at FROM inventory_sync WHERE id = 1`).Scan(&snap.Mode, &snap.SyncedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, errors.NewStorageError("failed to load sync metadata", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT date, branch_name, device_name, stock_in, stock_out, current_count, remarks, category
		FROM inventory_records ORDER BY position`)
	if err != nil {
		return Snapshot{}, errors.NewStorageError("failed to query records", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Record, error) {
		var r inventory.Record
		var category string
		err := row.Scan(&r.Date, &r.BranchName, &r.DeviceName, &r.StockIn, &r.StockOut, &r.CurrentCount, &r.Remarks, &category)
		r.Category = inventory.Category(category)
		return r, err
	})
	if err != nil {
		return Snapshot{}, errors.NewStorageError("failed to scan records", err)
	}
	snap.Records = records
	return snap, nil
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{`DELETE FROM inventory_records`, `DELETE FROM inventory_sync`} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return errors.NewStorageError(fmt.Sprintf("failed to clear snapshot (%s)", stmt), err)
		}
	}
	return tx.Commit(ctx)
}

// Ping checks that the database is reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}
