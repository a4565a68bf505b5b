package repo

import (
	"fmt"
	"time"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

// filtro comum de janela/sorteio; $1..$3 são from, to e slot (NULL = sem filtro)
const windowClause = `
	($1::date IS NULL OR %[1]s >= $1::date)
	AND ($2::date IS NULL OR %[1]s <= $2::date)
	AND ($3::text IS NULL OR %[2]s = $3::text)`

func whereWindow(dayCol, slotCol string) string {
	return fmt.Sprintf(windowClause, dayCol, slotCol)
}

func windowArgs(q lottery.Query) []any {
	return []any{nullable(q.Window.From), nullable(q.Window.To), nullable(q.Slot)}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func day(t time.Time) string { return t.Format(lottery.DayLayout) }

// storageErr preserva tanto ErrStorage quanto a causa original
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, lottery.ErrStorage, err)
}
