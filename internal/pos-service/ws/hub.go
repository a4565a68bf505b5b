package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// client serializa escritas: gorilla não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões do painel e as assinaturas por tipo de evento
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu sync.RWMutex
	// kind -> conexões
	subs map[string]map[*client]struct{}
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS atende uma conexão até o cliente desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.Kind == "" {
				msg.Kind = AllKinds
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.Kind]; !ok {
				h.subs[msg.Kind] = make(map[*client]struct{})
			}
			h.subs[msg.Kind][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			h.drop(msg.Kind, c)
			h.mu.Unlock()
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	h.mu.Lock()
	for kind := range h.subs {
		h.drop(kind, c)
	}
	h.mu.Unlock()
}

// drop exige h.mu
func (h *Hub) drop(kind string, c *client) {
	if m, ok := h.subs[kind]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, kind)
		}
	}
}

// Broadcast entrega o evento a quem assinou o tipo dele ou "*"
func (h *Hub) Broadcast(ev events.LedgerEvent) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[ev.Kind])+len(h.subs[AllKinds]))
	seen := make(map[*client]struct{})
	for _, kind := range []string{ev.Kind, AllKinds} {
		for c := range h.subs[kind] {
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

// Subscribers conta conexões distintas com alguma assinatura
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*client]struct{})
	for _, m := range h.subs {
		for c := range m {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}
