package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// SalesStore é implementado por repo.Sales
type SalesStore interface {
	Merge(ctx context.Context, sale lottery.Sale, prize func(total int64) int64) (lottery.SaleOutcome, error)
	DeleteLatest(ctx context.Context) (lottery.Bet, error)
	Grouped(ctx context.Context, q lottery.Query) ([]lottery.GroupedSaleRow, error)
	History(ctx context.Context, number string, limit int) ([]lottery.Bet, error)
	Stats(ctx context.Context, number string) (lottery.NumberStats, error)
	TopNumbers(ctx context.Context, q lottery.Query, limit int) ([]lottery.NumberTotal, error)
	SlotTotals(ctx context.Context, q lottery.Query) ([]lottery.SlotTotal, error)
}

// ResultsStore é implementado por repo.Results
type ResultsStore interface {
	Upsert(ctx context.Context, res lottery.DrawResult) (created bool, err error)
	Get(ctx context.Context, day, slot string) (string, bool, error)
	Recent(ctx context.Context, limit int, slotOrder []string) ([]lottery.DrawResult, error)
	Report(ctx context.Context, q lottery.Query) ([]lottery.WinnerRow, error)
	Payouts(ctx context.Context, q lottery.Query) ([]lottery.SlotPayout, error)
}

// SettingsStore é implementado por repo.Settings
type SettingsStore interface {
	Load(ctx context.Context) (lottery.Settings, error)
	Update(ctx context.Context, unitPrize, minStake int64, theme string) error
	SetCredentialHash(ctx context.Context, hash *string) error
	GetPreference(ctx context.Context, key string) (json.RawMessage, bool, error)
	PutPreference(ctx context.Context, key string, value json.RawMessage) error
	ListPreferences(ctx context.Context) (map[string]json.RawMessage, error)
}

// Publisher envia eventos do ledger (Kafka em produção)
type Publisher interface {
	Publish(ctx context.Context, ev events.LedgerEvent) error
}

// WinnerCache guarda consultas de ganhador; falhas nunca derrubam a operação
type WinnerCache interface {
	Get(ctx context.Context, day, slot string) (string, bool, error)
	Set(ctx context.Context, res lottery.DrawResult) error
	Delete(ctx context.Context, day, slot string) error
}

// Hooks conecta contadores Prometheus sem acoplar o serviço ao client
type Hooks struct {
	OnSale   func(created bool)
	OnUndo   func()
	OnWinner func(created bool)
	OnError  func(op string)
}

// Clock fornece o "agora" no fuso da loja
type Clock struct {
	now func() time.Time
	loc *time.Location
}

func NewClock(now func() time.Time, loc *time.Location) Clock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Clock{now: now, loc: loc}
}

func (c Clock) Now() time.Time { return c.now().In(c.loc) }

const publishTimeout = 2 * time.Second

// emit publica o evento depois do commit; falha só gera log
func emit(ctx context.Context, log *zap.Logger, publ Publisher, ev events.LedgerEvent) {
	if publ == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := publ.Publish(pctx, ev); err != nil {
		log.Warn("ledger event publish failed", zap.String("kind", ev.Kind), zap.String("id", ev.ID), zap.Error(err))
	}
}

// fail registra erros inesperados; validação e "nada a desfazer" não contam como erro
func fail(log *zap.Logger, hooks Hooks, op string, err error) error {
	if lottery.IsValidation(err) ||
		errors.Is(err, lottery.ErrNothingToUndo) ||
		errors.Is(err, lottery.ErrCredentialMismatch) ||
		errors.Is(err, lottery.ErrNotFound) {
		return err
	}
	log.Error(op+" failed", zap.Error(err))
	if hooks.OnError != nil {
		hooks.OnError(op)
	}
	return err
}
