package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema cria as tabelas do POS; todas as instruções são idempotentes
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		id            BIGSERIAL PRIMARY KEY,
		number        TEXT        NOT NULL CHECK (number ~ '^[0-9]{2}$'),
		stake         BIGINT      NOT NULL CHECK (stake > 0),
		prize         BIGINT      NOT NULL DEFAULT 0,
		last_modified TIMESTAMPTZ NOT NULL,
		draw_slot     TEXT        NOT NULL,
		sale_day      DATE        NOT NULL,
		UNIQUE (number, sale_day, draw_slot)
	)`,
	`CREATE INDEX IF NOT EXISTS sales_last_modified_idx ON sales (last_modified DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS sales_day_slot_idx ON sales (sale_day, draw_slot)`,
	`CREATE TABLE IF NOT EXISTS draw_results (
		id             BIGSERIAL PRIMARY KEY,
		draw_day       DATE        NOT NULL,
		draw_slot      TEXT        NOT NULL,
		winning_number TEXT        NOT NULL CHECK (winning_number ~ '^[0-9]{2}$'),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (draw_day, draw_slot)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id              SMALLINT PRIMARY KEY CHECK (id = 1),
		credential_hash TEXT,
		unit_prize      BIGINT      NOT NULL DEFAULT 70 CHECK (unit_prize > 0),
		min_stake       BIGINT      NOT NULL DEFAULT 1 CHECK (min_stake > 0),
		theme           TEXT        NOT NULL DEFAULT 'clam',
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS ui_preferences (
		key        TEXT PRIMARY KEY,
		value      JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_events (
		id          UUID PRIMARY KEY,
		kind        TEXT        NOT NULL,
		payload     JSONB       NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate aplica o schema dentro de uma transação
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate begin: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate commit: %w", err)
	}
	return nil
}
