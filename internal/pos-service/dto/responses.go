package dto

import (
	"encoding/json"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SaleResponse struct {
	Created bool        `json:"created"` // false = somado a um registro existente
	Bet     lottery.Bet `json:"bet"`
}

type UndoResponse struct {
	Removed lottery.Bet `json:"removed"`
}

type PrizeResponse struct {
	Stake  int64               `json:"stake"`
	Prize  int64               `json:"prize"`
	Policy lottery.PrizePolicy `json:"policy"`
}

type SlotsResponse struct {
	Slots   []lottery.Slot `json:"slots"`
	Default string         `json:"default"`
}

type WinnerResponse struct {
	Day    string `json:"day"`
	Slot   string `json:"slot"`
	Number string `json:"number"`
}

type SettingsResponse struct {
	PolicyKind    lottery.PolicyKind `json:"policyKind"`
	UnitPrize     int64              `json:"unitPrize"`
	MinStake      int64              `json:"minStake"`
	Theme         string             `json:"theme"`
	LoginRequired bool               `json:"loginRequired"`
}

func NewSettingsResponse(s lottery.Settings) SettingsResponse {
	return SettingsResponse{
		PolicyKind:    s.Policy.Kind,
		UnitPrize:     s.Policy.UnitPrize,
		MinStake:      s.MinStake,
		Theme:         s.Theme,
		LoginRequired: s.LoginRequired(),
	}
}

type LoginResponse struct {
	OK       bool `json:"ok"`
	Bypassed bool `json:"bypassed"` // nenhuma senha configurada
}

type PreferenceResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}
