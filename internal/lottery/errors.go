package lottery

import "errors"

// Erros de domínio. A camada HTTP traduz cada um para um status.
var (
	ErrInvalidNumber      = errors.New("invalid lottery number")
	ErrInvalidStake       = errors.New("invalid stake")
	ErrInvalidSlot        = errors.New("invalid draw slot")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidFilter      = errors.New("invalid report filter")
	ErrInvalidRange       = errors.New("invalid report range")
	ErrInvalidSetting     = errors.New("invalid setting")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage error")
	ErrCredentialMismatch = errors.New("credential mismatch")
)

// IsValidation indica erros detectados antes de qualquer escrita.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidNumber) ||
		errors.Is(err, ErrInvalidStake) ||
		errors.Is(err, ErrInvalidSlot) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidSetting)
}
