package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/ledger-audit/repository"
	"github.com/radieske/numbers-lottery-pos/internal/shared/kafka"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type AuditRepo interface {
	Insert(ctx context.Context, e events.LedgerEvent) error
}

type Broadcaster interface {
	Publish(ctx context.Context, payload []byte) error
}

const (
	persistRetries   = 3
	broadcastTimeout = 500 * time.Millisecond
)

// Processor consome ledger_events, grava a auditoria e repassa ao broadcast.
// Mensagens inválidas ou que esgotam as tentativas vão para a DLQ.
type Processor struct {
	Log       *zap.Logger
	Reader    MessageReader
	Repo      AuditRepo
	Broadcast Broadcaster
	DLQ       kafka.MessageWriter // nil = sem DLQ

	OnConsumed  func()
	OnPersist   func(kind string)
	OnDuplicate func()
	OnDLQ       func(reason string)
	OnError     func(stage string)

	backoff   time.Duration
	readDelay time.Duration
}

// Run roda até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.stage("read")
			if err := p.waitRead(ctx); err != nil {
				return err
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// waitRead espera antes de ler de novo, mas cede ao cancelamento
func (p *Processor) waitRead(ctx context.Context) error {
	d := p.readDelay
	if d == 0 {
		d = 500 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Handle processa uma mensagem; nunca trava o loop
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.LedgerEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid ledger message", zap.Int64("offset", m.Offset), zap.Error(err))
		p.stage("decode")
		p.deadLetter(ctx, m, "decode")
		return
	}
	if !ev.Valid() {
		p.Log.Warn("ledger event rejected", zap.String("id", ev.ID), zap.String("kind", ev.Kind))
		p.stage("validate")
		p.deadLetter(ctx, m, "validate")
		return
	}

	if err := p.persist(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			p.Log.Debug("ledger event already audited", zap.String("id", ev.ID))
			if p.OnDuplicate != nil {
				p.OnDuplicate()
			}
			return
		}
		p.Log.Error("ledger audit insert failed", zap.String("id", ev.ID), zap.Error(err))
		p.stage("db_insert")
		p.deadLetter(ctx, m, "db_insert")
		return
	}
	if p.OnPersist != nil {
		p.OnPersist(ev.Kind)
	}

	bctx, cancel := context.WithTimeout(ctx, broadcastTimeout)
	defer cancel()
	if err := p.Broadcast.Publish(bctx, m.Value); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.String("id", ev.ID), zap.Error(err))
		p.stage("broadcast")
	}
}

// persist tenta algumas vezes com backoff linear; duplicata não é retentada
func (p *Processor) persist(ctx context.Context, ev events.LedgerEvent) error {
	backoff := p.backoff
	if backoff == 0 {
		backoff = 300 * time.Millisecond
	}
	var err error
	for i := 0; i < persistRetries; i++ {
		if err = p.Repo.Insert(ctx, ev); err == nil || errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	return err
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, reason string) {
	if p.DLQ == nil {
		return
	}
	if err := kafka.WriteDLQ(ctx, p.DLQ, m, reason); err != nil {
		p.Log.Error("dlq write failed", zap.String("reason", reason), zap.Error(err))
		p.stage("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ(reason)
	}
}

func (p *Processor) stage(s string) {
	if p.OnError != nil {
		p.OnError(s)
	}
}
