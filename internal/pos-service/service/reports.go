package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 500
	DefaultTopNumbers   = 5
	MaxTopNumbers       = 100
)

// Reports reúne as consultas de resumo e os dados dos gráficos
type Reports struct {
	sales   SalesStore
	results ResultsStore
	slots   lottery.SlotSet
	clock   Clock
	log     *zap.Logger
	hooks   Hooks
}

func NewReports(sales SalesStore, results ResultsStore, slots lottery.SlotSet, clock Clock, log *zap.Logger, hooks Hooks) *Reports {
	return &Reports{sales: sales, results: results, slots: slots, clock: clock, log: log, hooks: hooks}
}

// DailySummary: totais de hoje, número mais vendido e linhas por prêmio desc
func (r *Reports) DailySummary(ctx context.Context) (lottery.DailySummary, error) {
	today := r.clock.Now().Format(lottery.DayLayout)
	q := lottery.Query{Window: lottery.Window{From: today, To: today}, SlotOrder: r.slots.Labels()}

	rows, err := r.sales.Grouped(ctx, q)
	if err != nil {
		return lottery.DailySummary{}, fail(r.log, r.hooks, "daily_summary", err)
	}

	sum := lottery.DailySummary{Day: today, Records: int64(len(rows)), MostSold: lottery.MostSold(rows), Rows: rows}
	for _, row := range rows {
		sum.TotalStake += row.Stake
		sum.TotalPrize += row.Prize
	}
	lottery.SortByPrize(sum.Rows)
	return sum, nil
}

func (r *Reports) NumberHistory(ctx context.Context, number string, limit int) ([]lottery.Bet, error) {
	num, err := lottery.NormalizeNumber(number)
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, DefaultHistoryLimit, MaxHistoryLimit)
	out, err := r.sales.History(ctx, num, limit)
	if err != nil {
		return nil, fail(r.log, r.hooks, "number_history", err)
	}
	return out, nil
}

func (r *Reports) NumberSummary(ctx context.Context, number string) (lottery.NumberStats, error) {
	num, err := lottery.NormalizeNumber(number)
	if err != nil {
		return lottery.NumberStats{}, err
	}
	st, err := r.sales.Stats(ctx, num)
	if err != nil {
		return lottery.NumberStats{}, fail(r.log, r.hooks, "number_summary", err)
	}
	return st, nil
}

func (r *Reports) TopNumbers(ctx context.Context, req lottery.FilterRequest, limit int) ([]lottery.NumberTotal, error) {
	q, err := r.query(req)
	if err != nil {
		return nil, err
	}
	out, err := r.sales.TopNumbers(ctx, q, clamp(limit, DefaultTopNumbers, MaxTopNumbers))
	if err != nil {
		return nil, fail(r.log, r.hooks, "top_numbers", err)
	}
	return out, nil
}

func (r *Reports) SlotTotals(ctx context.Context, req lottery.FilterRequest) ([]lottery.SlotTotal, error) {
	q, err := r.query(req)
	if err != nil {
		return nil, err
	}
	out, err := r.sales.SlotTotals(ctx, q)
	if err != nil {
		return nil, fail(r.log, r.hooks, "slot_totals", err)
	}
	return out, nil
}

// StakeVsPaid: apostado por sorteio contra o prêmio dos números que saíram
func (r *Reports) StakeVsPaid(ctx context.Context, req lottery.FilterRequest) ([]lottery.SlotPayout, error) {
	q, err := r.query(req)
	if err != nil {
		return nil, err
	}
	out, err := r.results.Payouts(ctx, q)
	if err != nil {
		return nil, fail(r.log, r.hooks, "stake_vs_paid", err)
	}
	return out, nil
}

func (r *Reports) query(req lottery.FilterRequest) (lottery.Query, error) {
	f, err := lottery.ParseFilter(req, r.slots)
	if err != nil {
		return lottery.Query{}, err
	}
	return f.Query(r.clock.Now(), r.slots), nil
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
