package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de broadcast do ledger e repassa ao Hub.
// O ledger-audit-worker publica no canal depois de gravar a auditoria.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				Dispatch(hub, []byte(msg.Payload), log)
			}
		}
	}()
}

// Dispatch decodifica um payload do canal e faz o broadcast
func Dispatch(hub *Hub, payload []byte, log *zap.Logger) bool {
	var ev events.LedgerEvent
	if err := json.Unmarshal(payload, &ev); err != nil || !ev.Valid() {
		log.Warn("ws subscriber dropped message", zap.ByteString("payload", payload), zap.Error(err))
		return false
	}
	hub.Broadcast(ev)
	return true
}
