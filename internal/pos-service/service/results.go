package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

const (
	DefaultRecentWinners = 5
	MaxRecentWinners     = 100
)

// Results guarda um número ganhador por (dia, sorteio).
// O cache nunca recebe o valor na escrita: o registro remove a chave e só a
// leitura preenche, e apenas se nenhum registro aconteceu no meio.
type Results struct {
	store ResultsStore
	cache WinnerCache
	slots lottery.SlotSet
	clock Clock
	publ  Publisher
	log   *zap.Logger
	hooks Hooks

	mu    sync.Mutex
	epoch uint64              // incrementa a cada registro confirmado
	dirty map[string]struct{} // chaves cuja remoção no Redis falhou
}

func NewResults(store ResultsStore, cache WinnerCache, slots lottery.SlotSet, clock Clock, publ Publisher, log *zap.Logger, hooks Hooks) *Results {
	return &Results{
		store: store,
		cache: cache,
		slots: slots,
		clock: clock,
		publ:  publ,
		log:   log,
		hooks: hooks,
		dirty: map[string]struct{}{},
	}
}

// RegisterWinner faz upsert: registrar de novo a mesma chave sobrescreve o número
func (r *Results) RegisterWinner(ctx context.Context, day, slot, number string) (lottery.DrawResult, error) {
	res, err := r.validate(day, slot)
	if err != nil {
		return lottery.DrawResult{}, err
	}
	if res.Number, err = lottery.NormalizeNumber(number); err != nil {
		return lottery.DrawResult{}, err
	}

	created, err := r.store.Upsert(ctx, res)
	if err != nil {
		return lottery.DrawResult{}, fail(r.log, r.hooks, "register_winner", err)
	}

	r.invalidate(ctx, res.Day, res.Slot)

	r.log.Info("winner registered",
		zap.String("day", res.Day),
		zap.String("slot", res.Slot),
		zap.String("number", res.Number),
		zap.Bool("created", created),
	)
	if r.hooks.OnWinner != nil {
		r.hooks.OnWinner(created)
	}

	ev := events.NewLedgerEvent(events.KindWinnerRegistered, r.clock.Now())
	ev.Winner = &events.WinnerPayload{Day: res.Day, Slot: res.Slot, Number: res.Number}
	emit(ctx, r.log, r.publ, ev)

	return res, nil
}

// GetWinner consulta cache e depois o banco; found=false quando o sorteio não tem resultado
func (r *Results) GetWinner(ctx context.Context, day, slot string) (string, bool, error) {
	key, err := r.validate(day, slot)
	if err != nil {
		return "", false, err
	}

	if r.cacheUsable(ctx, key.Day, key.Slot) {
		n, ok, err := r.cache.Get(ctx, key.Day, key.Slot)
		if err != nil {
			r.log.Warn("winner cache get failed", zap.Error(err))
		} else if ok {
			return n, true, nil
		}
	}

	epoch := r.currentEpoch()
	n, ok, err := r.store.Get(ctx, key.Day, key.Slot)
	if err != nil {
		return "", false, fail(r.log, r.hooks, "get_winner", err)
	}
	if ok {
		key.Number = n
		r.fill(ctx, key, epoch)
	}
	return n, ok, nil
}

func cacheKey(day, slot string) string { return day + "|" + slot }

// invalidate remove a chave depois do commit. Se o Redis falhar, a chave fica
// marcada e as leituras vão direto ao banco até uma remoção funcionar.
func (r *Results) invalidate(ctx context.Context, day, slot string) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	k := cacheKey(day, slot)
	if err := r.cache.Delete(ctx, day, slot); err != nil {
		r.dirty[k] = struct{}{}
		r.log.Warn("winner cache invalidate failed, bypassing cache for key",
			zap.String("day", day), zap.String("slot", slot), zap.Error(err))
		return
	}
	delete(r.dirty, k)
}

// cacheUsable tenta de novo a remoção pendente antes de liberar a leitura do cache
func (r *Results) cacheUsable(ctx context.Context, day, slot string) bool {
	if r.cache == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := cacheKey(day, slot)
	if _, stale := r.dirty[k]; !stale {
		return true
	}
	if err := r.cache.Delete(ctx, day, slot); err != nil {
		return false
	}
	delete(r.dirty, k)
	return true
}

func (r *Results) currentEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// fill grava o valor lido do banco, salvo se houve registro desde a leitura
func (r *Results) fill(ctx context.Context, res lottery.DrawResult, epoch uint64) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		return
	}
	if _, stale := r.dirty[cacheKey(res.Day, res.Slot)]; stale {
		return
	}
	if err := r.cache.Set(ctx, res); err != nil {
		r.log.Warn("winner cache set failed", zap.Error(err))
	}
}

func (r *Results) RecentWinners(ctx context.Context, limit int) ([]lottery.DrawResult, error) {
	if limit <= 0 {
		limit = DefaultRecentWinners
	}
	if limit > MaxRecentWinners {
		limit = MaxRecentWinners
	}
	out, err := r.store.Recent(ctx, limit, r.slots.Labels())
	if err != nil {
		return nil, fail(r.log, r.hooks, "recent_winners", err)
	}
	return out, nil
}

// QueryWinners anota cada resultado com o apostado/prêmio do número ganhador
func (r *Results) QueryWinners(ctx context.Context, req lottery.FilterRequest) (lottery.WinnersReport, error) {
	f, err := lottery.ParseFilter(req, r.slots)
	if err != nil {
		return lottery.WinnersReport{}, err
	}
	q := f.Query(r.clock.Now(), r.slots)

	rows, err := r.store.Report(ctx, q)
	if err != nil {
		return lottery.WinnersReport{}, fail(r.log, r.hooks, "query_winners", err)
	}
	return lottery.NewWinnersReport(q, rows), nil
}

func (r *Results) validate(day, slot string) (lottery.DrawResult, error) {
	d, err := lottery.ParseDay(day)
	if err != nil {
		return lottery.DrawResult{}, err
	}
	slot = strings.TrimSpace(slot)
	if !r.slots.Contains(slot) {
		return lottery.DrawResult{}, fmt.Errorf("%w: %q", lottery.ErrInvalidSlot, slot)
	}
	return lottery.DrawResult{Day: d.Format(lottery.DayLayout), Slot: slot}, nil
}
