package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/numbers-lottery-pos/internal/shared/db"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// ErrDuplicate: o evento já foi auditado (reentrega do Kafka)
var ErrDuplicate = errors.New("ledger event already recorded")

// PostgresRepo grava a trilha de auditoria em ledger_events
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Insert grava o envelope inteiro como jsonb; id repetido vira ErrDuplicate
func (r *PostgresRepo) Insert(ctx context.Context, e events.LedgerEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	const q = `
		INSERT INTO ledger_events (id, kind, payload, occurred_at)
		VALUES ($1, $2, $3::jsonb, $4)
	`
	if _, err := r.DB.ExecContext(ctx, q, e.ID, e.Kind, string(payload), e.OccurredAt); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%s: %w", e.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// CountByKind resume a trilha; usado no log de encerramento do worker
func (r *PostgresRepo) CountByKind(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind, COUNT(*) FROM ledger_events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count ledger events: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan ledger count: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}
