package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// Ledger registra vendas com merge por (número, dia, sorteio)
type Ledger struct {
	sales    SalesStore
	settings *Settings
	slots    lottery.SlotSet
	clock    Clock
	publ     Publisher
	log      *zap.Logger
	hooks    Hooks
}

func NewLedger(sales SalesStore, settings *Settings, slots lottery.SlotSet, clock Clock, publ Publisher, log *zap.Logger, hooks Hooks) *Ledger {
	return &Ledger{sales: sales, settings: settings, slots: slots, clock: clock, publ: publ, log: log, hooks: hooks}
}

// RecordSale valida tudo antes de tocar no banco; slot vazio usa o sorteio aberto agora
func (l *Ledger) RecordSale(ctx context.Context, number string, stake int64, slot string) (lottery.SaleOutcome, error) {
	num, err := lottery.NormalizeNumber(number)
	if err != nil {
		return lottery.SaleOutcome{}, err
	}

	cur := l.settings.Current()
	if stake <= 0 || stake > lottery.MaxStake {
		return lottery.SaleOutcome{}, fmt.Errorf("%w: %d out of range", lottery.ErrInvalidStake, stake)
	}
	if stake < cur.MinStake {
		return lottery.SaleOutcome{}, fmt.Errorf("%w: %d below minimum %d", lottery.ErrInvalidStake, stake, cur.MinStake)
	}
	if err := cur.Policy.Accepts(stake); err != nil {
		return lottery.SaleOutcome{}, err
	}

	now := l.clock.Now()
	slot, err = l.slots.Resolve(slot, now)
	if err != nil {
		return lottery.SaleOutcome{}, err
	}

	out, err := l.sales.Merge(ctx, lottery.Sale{
		Number: num,
		Stake:  stake,
		Slot:   slot,
		Day:    now.Format(lottery.DayLayout),
		At:     now,
	}, cur.Policy.Compute)
	if err != nil {
		return lottery.SaleOutcome{}, fail(l.log, l.hooks, "record_sale", err)
	}

	l.log.Debug("sale recorded",
		zap.String("number", out.Bet.Number),
		zap.String("slot", out.Bet.Slot),
		zap.Int64("stake", stake),
		zap.Int64("total", out.Bet.Stake),
		zap.Bool("created", out.Created),
	)
	if l.hooks.OnSale != nil {
		l.hooks.OnSale(out.Created)
	}

	ev := events.NewLedgerEvent(events.KindSaleRecorded, now)
	ev.Sale = salePayload(out.Bet, out.Created)
	emit(ctx, l.log, l.publ, ev)

	return out, nil
}

// UndoLastSale remove o registro tocado por último no ledger inteiro, não só do número
func (l *Ledger) UndoLastSale(ctx context.Context) (lottery.Bet, error) {
	b, err := l.sales.DeleteLatest(ctx)
	if err != nil {
		return lottery.Bet{}, fail(l.log, l.hooks, "undo_last_sale", err)
	}

	l.log.Info("sale undone", zap.Int64("id", b.ID), zap.String("number", b.Number), zap.String("slot", b.Slot))
	if l.hooks.OnUndo != nil {
		l.hooks.OnUndo()
	}

	ev := events.NewLedgerEvent(events.KindSaleUndone, l.clock.Now())
	ev.Sale = salePayload(b, false)
	emit(ctx, l.log, l.publ, ev)

	return b, nil
}

func (l *Ledger) QuerySales(ctx context.Context, req lottery.FilterRequest) (lottery.SalesReport, error) {
	f, err := lottery.ParseFilter(req, l.slots)
	if err != nil {
		return lottery.SalesReport{}, err
	}
	q := f.Query(l.clock.Now(), l.slots)

	rows, err := l.sales.Grouped(ctx, q)
	if err != nil {
		return lottery.SalesReport{}, fail(l.log, l.hooks, "query_sales", err)
	}
	return lottery.NewSalesReport(q, rows), nil
}

// ComputePrize pré-visualiza o prêmio sem gravar nada
func (l *Ledger) ComputePrize(stake int64) int64 {
	return l.settings.ComputePrize(stake)
}

// Slots devolve os sorteios configurados e o que está aberto agora
func (l *Ledger) Slots() ([]lottery.Slot, string) {
	return l.slots.All(), l.slots.Default(l.clock.Now())
}

func salePayload(b lottery.Bet, created bool) *events.SalePayload {
	return &events.SalePayload{
		SaleID:  b.ID,
		Number:  b.Number,
		Slot:    b.Slot,
		Day:     b.Day,
		Stake:   b.Stake,
		Prize:   b.Prize,
		Created: created,
	}
}
