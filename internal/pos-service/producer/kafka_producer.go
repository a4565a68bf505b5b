package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/radieske/numbers-lottery-pos/internal/shared/kafka"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// KafkaPublisher publica eventos do ledger no tópico ledger_events.
// A chave é dia|sorteio, então eventos do mesmo sorteio ficam ordenados na partição.
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w kafka.MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e events.LedgerEvent) error {
	if !e.Valid() {
		return fmt.Errorf("publish %s: invalid event %q", p.Topic, e.Kind)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Kind, err)
	}
	if err := kafka.WriteJSON(ctx, p.Writer, e.Key(), b); err != nil {
		return fmt.Errorf("publish %s: %w", p.Topic, err)
	}
	return nil
}
