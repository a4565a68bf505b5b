package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

// Results persiste o número ganhador de cada (dia, sorteio)
type Results struct{ db *sql.DB }

func NewResults(db *sql.DB) *Results { return &Results{db: db} }

// Upsert grava ou sobrescreve o ganhador; created indica a primeira gravação da chave
func (r *Results) Upsert(ctx context.Context, res lottery.DrawResult) (bool, error) {
	const q = `
		INSERT INTO draw_results (draw_day, draw_slot, winning_number, updated_at)
		VALUES ($1::date, $2, $3, NOW())
		ON CONFLICT (draw_day, draw_slot) DO UPDATE SET
		  winning_number = EXCLUDED.winning_number,
		  updated_at     = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`

	var created bool
	if err := r.db.QueryRowContext(ctx, q, res.Day, res.Slot, res.Number).Scan(&created); err != nil {
		return false, storageErr("upsert winner", err)
	}
	return created, nil
}

func (r *Results) Get(ctx context.Context, day, slot string) (string, bool, error) {
	var n string
	err := r.db.QueryRowContext(ctx,
		`SELECT winning_number FROM draw_results WHERE draw_day = $1::date AND draw_slot = $2`,
		day, slot).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get winner", err)
	}
	return n, true, nil
}

// Recent lista os últimos ganhadores: dia desc, depois a ordem dos sorteios
func (r *Results) Recent(ctx context.Context, limit int, slotOrder []string) ([]lottery.DrawResult, error) {
	const q = `
		SELECT draw_day, draw_slot, winning_number
		FROM draw_results
		ORDER BY draw_day DESC, array_position($2::text[], draw_slot), draw_slot
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, limit, pq.Array(slotOrder))
	if err != nil {
		return nil, storageErr("recent winners", err)
	}
	defer rows.Close()

	out := []lottery.DrawResult{}
	for rows.Next() {
		var (
			res lottery.DrawResult
			d   time.Time
		)
		if err := rows.Scan(&d, &res.Slot, &res.Number); err != nil {
			return nil, storageErr("recent winners scan", err)
		}
		res.Day = day(d)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent winners rows", err)
	}
	return out, nil
}

// Report cruza cada resultado com as vendas do número ganhador; sem vendas, totais zerados
func (r *Results) Report(ctx context.Context, q lottery.Query) ([]lottery.WinnerRow, error) {
	query := `
		SELECT r.draw_day, r.draw_slot, r.winning_number,
		       COALESCE(SUM(s.stake), 0), COALESCE(SUM(s.prize), 0)
		FROM draw_results r
		LEFT JOIN sales s
		  ON s.sale_day = r.draw_day
		 AND s.draw_slot = r.draw_slot
		 AND s.number = r.winning_number
		WHERE ` + whereWindow("r.draw_day", "r.draw_slot") + `
		GROUP BY r.draw_day, r.draw_slot, r.winning_number
		ORDER BY r.draw_day DESC, array_position($4::text[], r.draw_slot), r.draw_slot`

	rows, err := r.db.QueryContext(ctx, query, append(windowArgs(q), pq.Array(q.SlotOrder))...)
	if err != nil {
		return nil, storageErr("winners report", err)
	}
	defer rows.Close()

	out := []lottery.WinnerRow{}
	for rows.Next() {
		var (
			w lottery.WinnerRow
			d time.Time
		)
		if err := rows.Scan(&d, &w.Slot, &w.Number, &w.Stake, &w.Prize); err != nil {
			return nil, storageErr("winners report scan", err)
		}
		w.Day = day(d)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("winners report rows", err)
	}
	return out, nil
}

// Payouts compara, por sorteio, o total apostado com o prêmio dos números que saíram
func (r *Results) Payouts(ctx context.Context, q lottery.Query) ([]lottery.SlotPayout, error) {
	query := `
		SELECT s.draw_slot,
		       SUM(s.stake),
		       COALESCE(SUM(s.prize) FILTER (WHERE r.winning_number IS NOT NULL), 0)
		FROM sales s
		LEFT JOIN draw_results r
		  ON r.draw_day = s.sale_day
		 AND r.draw_slot = s.draw_slot
		 AND r.winning_number = s.number
		WHERE ` + whereWindow("s.sale_day", "s.draw_slot") + `
		GROUP BY s.draw_slot
		ORDER BY array_position($4::text[], s.draw_slot), s.draw_slot`

	rows, err := r.db.QueryContext(ctx, query, append(windowArgs(q), pq.Array(q.SlotOrder))...)
	if err != nil {
		return nil, storageErr("slot payouts", err)
	}
	defer rows.Close()

	out := []lottery.SlotPayout{}
	for rows.Next() {
		var p lottery.SlotPayout
		if err := rows.Scan(&p.Slot, &p.Stake, &p.Paid); err != nil {
			return nil, storageErr("slot payouts scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("slot payouts rows", err)
	}
	return out, nil
}
