package lottery

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLayout é o formato de sale_day / draw_day.
const DayLayout = "2006-01-02"

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodRange   Period = "range"
	PeriodAll     Period = "all"
)

// FilterRequest chega cru da borda (query string); ParseFilter valida tudo.
type FilterRequest struct {
	Period string `json:"period"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Month  string `json:"month,omitempty"`
	Year   string `json:"year,omitempty"`
	Slot   string `json:"slot,omitempty"`
}

type Filter struct {
	Period Period
	Month  time.Month
	Year   int
	Start  time.Time
	End    time.Time
	Slot   string // vazio = todos os sorteios
}

// Window é um intervalo fechado de dias (YYYY-MM-DD). Limites vazios = sem limite.
type Window struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Query é o que os stores recebem: janela, slot e ordem dos slots.
type Query struct {
	Window    Window
	Slot      string
	SlotOrder []string
}

func ParseFilter(req FilterRequest, slots SlotSet) (Filter, error) {
	f := Filter{Period: Period(strings.ToLower(strings.TrimSpace(req.Period)))}
	if f.Period == "" {
		f.Period = PeriodDaily
	}

	switch f.Period {
	case PeriodDaily, PeriodWeekly, PeriodAll:
	case PeriodMonthly:
		if strings.TrimSpace(req.Month) == "" || strings.TrimSpace(req.Year) == "" {
			return Filter{}, fmt.Errorf("%w: monthly needs month and year", ErrInvalidFilter)
		}
		m, err := strconv.Atoi(strings.TrimSpace(req.Month))
		if err != nil || m < 1 || m > 12 {
			return Filter{}, fmt.Errorf("%w: month %q", ErrInvalidFilter, req.Month)
		}
		y, err := strconv.Atoi(strings.TrimSpace(req.Year))
		if err != nil || y < 1 || y > 9999 {
			return Filter{}, fmt.Errorf("%w: year %q", ErrInvalidFilter, req.Year)
		}
		f.Month, f.Year = time.Month(m), y
	case PeriodRange:
		start, err := ParseDay(req.Start)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: start %q", ErrInvalidFilter, req.Start)
		}
		end, err := ParseDay(req.End)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: end %q", ErrInvalidFilter, req.End)
		}
		if start.After(end) {
			return Filter{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, req.Start, req.End)
		}
		f.Start, f.End = start, end
	default:
		return Filter{}, fmt.Errorf("%w: unknown period %q", ErrInvalidFilter, req.Period)
	}

	slot := strings.TrimSpace(req.Slot)
	if slot != "" && !strings.EqualFold(slot, "all") {
		if !slots.Contains(slot) {
			return Filter{}, fmt.Errorf("%w: unknown slot %q", ErrInvalidFilter, slot)
		}
		f.Slot = slot
	}
	return f, nil
}

// Window resolve o período relativo a now; now já deve estar no fuso da loja.
func (f Filter) Window(now time.Time) Window {
	today := truncateDay(now)
	switch f.Period {
	case PeriodDaily:
		d := today.Format(DayLayout)
		return Window{From: d, To: d}
	case PeriodWeekly:
		// semana ISO: segunda-feira até hoje
		back := (int(today.Weekday()) + 6) % 7
		return Window{From: today.AddDate(0, 0, -back).Format(DayLayout), To: today.Format(DayLayout)}
	case PeriodMonthly:
		first := time.Date(f.Year, f.Month, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return Window{From: first.Format(DayLayout), To: last.Format(DayLayout)}
	case PeriodRange:
		return Window{From: f.Start.Format(DayLayout), To: f.End.Format(DayLayout)}
	}
	return Window{}
}

func (f Filter) Query(now time.Time, slots SlotSet) Query {
	return Query{Window: f.Window(now), Slot: f.Slot, SlotOrder: slots.Labels()}
}

// ParseDay aceita só o layout YYYY-MM-DD.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
