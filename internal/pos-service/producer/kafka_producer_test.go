package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestPublishKeysByDayAndSlot(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "ledger_events")

	ev := events.NewLedgerEvent(events.KindSaleRecorded, time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC))
	ev.Sale = &events.SalePayload{SaleID: 1, Number: "05", Slot: "11 AM", Day: "2024-01-10", Stake: 25, Prize: 1750}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "2024-01-10|11 AM", string(w.msgs[0].Key))

	var got events.LedgerEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, int64(25), got.Sale.Stake)
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "ledger_events")

	err := p.Publish(context.Background(), events.NewLedgerEvent(events.KindWinnerRegistered, time.Now()))
	assert.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := NewKafkaPublisher(&fakeWriter{err: boom}, "ledger_events")

	ev := events.NewLedgerEvent(events.KindWinnerRegistered, time.Now())
	ev.Winner = &events.WinnerPayload{Day: "2024-01-10", Slot: "06 PM", Number: "07"}
	assert.ErrorIs(t, p.Publish(context.Background(), ev), boom)
}
