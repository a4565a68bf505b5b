package lottery

import (
	"fmt"
	"strings"
)

type PolicyKind string

const (
	PerUnit     PolicyKind = "per_unit"
	PerFiveUnit PolicyKind = "per_five"

	// tamanho do bloco na política per_five
	FiveUnits int64 = 5

	DefaultUnitPrize int64 = 70
	// MaxStake * MaxUnitPrize cabe folgado em int64
	MaxUnitPrize int64 = 1_000_000
)

// PrizePolicy define como o prêmio potencial é derivado do valor apostado.
//
//	per_unit: prize = stake * UnitPrize
//	per_five: prize = (stake / 5) * UnitPrize, só para múltiplos de 5
type PrizePolicy struct {
	Kind      PolicyKind `json:"kind"`
	UnitPrize int64      `json:"unitPrize"`
}

func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", PerUnit:
		return PerUnit, nil
	case PerFiveUnit:
		return PerFiveUnit, nil
	}
	return "", fmt.Errorf("unknown prize policy %q", s)
}

// Compute é pura: mesma política e mesmo stake, mesmo resultado.
func (p PrizePolicy) Compute(stake int64) int64 {
	if stake <= 0 {
		return 0
	}
	switch p.Kind {
	case PerFiveUnit:
		if stake%FiveUnits != 0 {
			return 0
		}
		return (stake / FiveUnits) * p.UnitPrize
	default:
		return stake * p.UnitPrize
	}
}

// Accepts valida o stake de uma venda contra a política.
func (p PrizePolicy) Accepts(stake int64) error {
	if stake <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidStake)
	}
	if p.Kind == PerFiveUnit && stake%FiveUnits != 0 {
		return fmt.Errorf("%w: %d is not a multiple of %d", ErrInvalidStake, stake, FiveUnits)
	}
	return nil
}
