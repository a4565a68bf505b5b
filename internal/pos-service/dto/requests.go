package dto

import (
	"encoding/json"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

// RecordSaleRequest: stake aceita número ou string ("10", 10, "10.0")
type RecordSaleRequest struct {
	Number string      `json:"number"`
	Stake  json.Number `json:"stake"`
	Slot   string      `json:"slot,omitempty"` // vazio = sorteio aberto agora
}

func (r *RecordSaleRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Number, validation.Required, validation.Length(1, 3)),
		validation.Field(&r.Stake, validation.Required),
		validation.Field(&r.Slot, validation.Length(0, 32)),
	)
}

// StakeValue converte o stake com as regras do domínio
func (r *RecordSaleRequest) StakeValue() (int64, error) {
	return lottery.ParseStake(r.Stake.String())
}

type RegisterWinnerRequest struct {
	Day    string `json:"day"` // YYYY-MM-DD
	Slot   string `json:"slot"`
	Number string `json:"number"`
}

func (r *RegisterWinnerRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Day, validation.Required, validation.Length(10, 10)),
		validation.Field(&r.Slot, validation.Required, validation.Length(1, 32)),
		validation.Field(&r.Number, validation.Required, validation.Length(1, 3)),
	)
}

// UpdateSettingsRequest: campos ausentes ficam como estão
type UpdateSettingsRequest struct {
	UnitPrize *int64  `json:"unitPrize,omitempty"`
	MinStake  *int64  `json:"minStake,omitempty"`
	Theme     *string `json:"theme,omitempty"`
}

func (r *UpdateSettingsRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.UnitPrize, validation.Min(int64(1)), validation.Max(lottery.MaxUnitPrize)),
		validation.Field(&r.MinStake, validation.Min(int64(1)), validation.Max(lottery.MaxStake)),
		validation.Field(&r.Theme, validation.By(func(v interface{}) error {
			if t, ok := v.(*string); ok && t != nil && strings.TrimSpace(*t) == "" {
				return errors.New("cannot be blank")
			}
			return nil
		}), validation.Length(0, 32)),
	)
}

func (r *UpdateSettingsRequest) Empty() bool {
	return r.UnitPrize == nil && r.MinStake == nil && r.Theme == nil
}

type LoginRequest struct {
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Password, validation.Length(0, 256)),
	)
}

// ChangeCredentialRequest: as regras de conferência ficam no serviço
type ChangeCredentialRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
	Confirm string `json:"confirm"`
}

func (r *ChangeCredentialRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Current, validation.Length(0, 256)),
		validation.Field(&r.New, validation.Length(0, 256)),
		validation.Field(&r.Confirm, validation.Length(0, 256)),
	)
}

type PreferenceRequest struct {
	Value json.RawMessage `json:"value"`
}

func (r *PreferenceRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Value, validation.Required),
	)
}
