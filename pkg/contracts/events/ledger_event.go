package events

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de evento publicados no tópico "ledger_events"
const (
	KindSaleRecorded     = "sale.recorded"
	KindSaleUndone       = "sale.undone"
	KindWinnerRegistered = "winner.registered"
)

type SalePayload struct {
	SaleID  int64  `json:"sale_id"`
	Number  string `json:"number"`
	Slot    string `json:"slot"`
	Day     string `json:"day"`
	Stake   int64  `json:"stake"`
	Prize   int64  `json:"prize"`
	Created bool   `json:"created"` // false = merge em registro existente
}

type WinnerPayload struct {
	Day    string `json:"day"`
	Slot   string `json:"slot"`
	Number string `json:"number"`
}

// LedgerEvent é o envelope comum; só um dos payloads vem preenchido.
type LedgerEvent struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
	Sale       *SalePayload   `json:"sale,omitempty"`
	Winner     *WinnerPayload `json:"winner,omitempty"`
}

func NewLedgerEvent(kind string, at time.Time) LedgerEvent {
	return LedgerEvent{ID: uuid.NewString(), Kind: kind, OccurredAt: at.UTC()}
}

// Key define a partição: mesmo dia+sorteio cai na mesma partição.
func (e LedgerEvent) Key() string {
	switch {
	case e.Sale != nil:
		return e.Sale.Day + "|" + e.Sale.Slot
	case e.Winner != nil:
		return e.Winner.Day + "|" + e.Winner.Slot
	}
	return e.ID
}

func (e LedgerEvent) Valid() bool {
	if _, err := uuid.Parse(e.ID); err != nil {
		return false
	}
	switch e.Kind {
	case KindSaleRecorded, KindSaleUndone:
		return e.Sale != nil
	case KindWinnerRegistered:
		return e.Winner != nil
	}
	return false
}
