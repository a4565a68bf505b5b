package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

// Sales implementa o ledger de vendas no Postgres
type Sales struct{ db *sql.DB }

func NewSales(db *sql.DB) *Sales { return &Sales{db: db} }

// Merge insere a venda ou soma o stake no registro (número, dia, sorteio) existente.
// O upsert trava a linha até o commit, então vendas concorrentes na mesma chave serializam.
// O prêmio é recalculado a partir do total, nunca somado.
func (s *Sales) Merge(ctx context.Context, sale lottery.Sale, prize func(total int64) int64) (lottery.SaleOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lottery.SaleOutcome{}, storageErr("merge sale begin", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO sales (number, stake, prize, last_modified, draw_slot, sale_day)
		VALUES ($1, $2, 0, $3, $4, $5::date)
		ON CONFLICT (number, sale_day, draw_slot) DO UPDATE SET
		  stake         = sales.stake + EXCLUDED.stake,
		  last_modified = EXCLUDED.last_modified
		RETURNING id, stake, (xmax = 0) AS inserted`

	var (
		id, total int64
		inserted  bool
	)
	if err := tx.QueryRowContext(ctx, upsert, sale.Number, sale.Stake, sale.At, sale.Slot, sale.Day).
		Scan(&id, &total, &inserted); err != nil {
		return lottery.SaleOutcome{}, storageErr("merge sale upsert", err)
	}

	p := prize(total)
	if _, err := tx.ExecContext(ctx, `UPDATE sales SET prize = $1 WHERE id = $2`, p, id); err != nil {
		return lottery.SaleOutcome{}, storageErr("merge sale prize", err)
	}

	if err := tx.Commit(); err != nil {
		return lottery.SaleOutcome{}, storageErr("merge sale commit", err)
	}

	return lottery.SaleOutcome{
		Created: inserted,
		Bet: lottery.Bet{
			ID:           id,
			Number:       sale.Number,
			Stake:        total,
			Prize:        p,
			LastModified: sale.At,
			Slot:         sale.Slot,
			Day:          sale.Day,
		},
	}, nil
}

// DeleteLatest remove o registro com maior last_modified do ledger inteiro (desempate pelo id)
func (s *Sales) DeleteLatest(ctx context.Context) (lottery.Bet, error) {
	const q = `
		DELETE FROM sales
		WHERE id = (
		  SELECT id FROM sales
		  ORDER BY last_modified DESC, id DESC
		  LIMIT 1
		  FOR UPDATE
		)
		RETURNING id, number, stake, prize, last_modified, draw_slot, sale_day`

	b, err := scanBet(s.db.QueryRowContext(ctx, q))
	if errors.Is(err, sql.ErrNoRows) {
		return lottery.Bet{}, lottery.ErrNothingToUndo
	}
	if err != nil {
		return lottery.Bet{}, storageErr("delete latest sale", err)
	}
	return b, nil
}

// Grouped agrupa por (número, dia, sorteio) somando stake/prêmio
func (s *Sales) Grouped(ctx context.Context, q lottery.Query) ([]lottery.GroupedSaleRow, error) {
	query := `
		SELECT number, sale_day, draw_slot, SUM(stake), SUM(prize), MAX(last_modified)
		FROM sales
		WHERE ` + whereWindow("sale_day", "draw_slot") + `
		GROUP BY number, sale_day, draw_slot
		ORDER BY MAX(last_modified) DESC, number ASC`

	rows, err := s.db.QueryContext(ctx, query, windowArgs(q)...)
	if err != nil {
		return nil, storageErr("grouped sales", err)
	}
	defer rows.Close()

	out := []lottery.GroupedSaleRow{}
	for rows.Next() {
		var (
			r lottery.GroupedSaleRow
			d time.Time
		)
		if err := rows.Scan(&r.Number, &d, &r.Slot, &r.Stake, &r.Prize, &r.LastModified); err != nil {
			return nil, storageErr("grouped sales scan", err)
		}
		r.Day = day(d)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("grouped sales rows", err)
	}
	return out, nil
}

// History devolve os últimos registros de um número, do mais recente ao mais antigo
func (s *Sales) History(ctx context.Context, number string, limit int) ([]lottery.Bet, error) {
	const q = `
		SELECT id, number, stake, prize, last_modified, draw_slot, sale_day
		FROM sales
		WHERE number = $1
		ORDER BY last_modified DESC, id DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, number, limit)
	if err != nil {
		return nil, storageErr("number history", err)
	}
	defer rows.Close()

	out := []lottery.Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, storageErr("number history scan", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("number history rows", err)
	}
	return out, nil
}

// Stats resume o histórico completo de um número, incluindo quantas vezes saiu
func (s *Sales) Stats(ctx context.Context, number string) (lottery.NumberStats, error) {
	const q = `
		SELECT COUNT(*), COALESCE(SUM(stake), 0), COALESCE(SUM(prize), 0), MAX(last_modified),
		       (SELECT COUNT(*) FROM draw_results WHERE winning_number = $1)
		FROM sales
		WHERE number = $1`

	st := lottery.NumberStats{Number: number}
	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, q, number).
		Scan(&st.Records, &st.TotalStake, &st.TotalPrize, &last, &st.TimesWon); err != nil {
		return lottery.NumberStats{}, storageErr("number stats", err)
	}
	if last.Valid {
		t := last.Time
		st.LastSale = &t
	}
	return st, nil
}

// TopNumbers ordena os números por stake total na janela
func (s *Sales) TopNumbers(ctx context.Context, q lottery.Query, limit int) ([]lottery.NumberTotal, error) {
	query := `
		SELECT number, COUNT(*), SUM(stake)
		FROM sales
		WHERE ` + whereWindow("sale_day", "draw_slot") + `
		GROUP BY number
		ORDER BY SUM(stake) DESC, number ASC
		LIMIT $4`

	rows, err := s.db.QueryContext(ctx, query, append(windowArgs(q), limit)...)
	if err != nil {
		return nil, storageErr("top numbers", err)
	}
	defer rows.Close()

	out := []lottery.NumberTotal{}
	for rows.Next() {
		var t lottery.NumberTotal
		if err := rows.Scan(&t.Number, &t.Records, &t.Stake); err != nil {
			return nil, storageErr("top numbers scan", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("top numbers rows", err)
	}
	return out, nil
}

// SlotTotals soma o stake por sorteio na ordem configurada dos sorteios
func (s *Sales) SlotTotals(ctx context.Context, q lottery.Query) ([]lottery.SlotTotal, error) {
	query := `
		SELECT draw_slot, SUM(stake)
		FROM sales
		WHERE ` + whereWindow("sale_day", "draw_slot") + `
		GROUP BY draw_slot
		ORDER BY array_position($4::text[], draw_slot), draw_slot`

	rows, err := s.db.QueryContext(ctx, query, append(windowArgs(q), pq.Array(q.SlotOrder))...)
	if err != nil {
		return nil, storageErr("slot totals", err)
	}
	defer rows.Close()

	out := []lottery.SlotTotal{}
	for rows.Next() {
		var t lottery.SlotTotal
		if err := rows.Scan(&t.Slot, &t.Stake); err != nil {
			return nil, storageErr("slot totals scan", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("slot totals rows", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBet(sc scanner) (lottery.Bet, error) {
	var (
		b lottery.Bet
		d time.Time
	)
	if err := sc.Scan(&b.ID, &b.Number, &b.Stake, &b.Prize, &b.LastModified, &b.Slot, &d); err != nil {
		return lottery.Bet{}, err
	}
	b.Day = day(d)
	return b, nil
}
