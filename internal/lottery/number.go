package lottery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinNumber = 0
	MaxNumber = 99

	// teto por venda
	MaxStake int64 = 1_000_000_000
)

// NormalizeNumber converte "5" ou " 05 " para a forma canônica "05".
func NormalizeNumber(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNumber)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not numeric", ErrInvalidNumber, raw)
	}
	if n < MinNumber || n > MaxNumber {
		return "", fmt.Errorf("%w: %d out of range", ErrInvalidNumber, n)
	}
	return fmt.Sprintf("%02d", n), nil
}

// ParseStake aceita valores inteiros positivos, inclusive na forma "10.0".
func ParseStake(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidStake)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidStake, raw)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %s is not a whole amount", ErrInvalidStake, d.String())
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidStake)
	}
	if d.GreaterThan(decimal.NewFromInt(MaxStake)) {
		return 0, fmt.Errorf("%w: above %d", ErrInvalidStake, MaxStake)
	}
	return d.IntPart(), nil
}
