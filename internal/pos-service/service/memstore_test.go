package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

// memory reproduz em memória a semântica das tabelas sales/draw_results/settings

type memory struct {
	mu      sync.Mutex
	nextID  int64
	sales   []lottery.Bet
	results map[[2]string]string
	set     lottery.Settings
	prefs   map[string]json.RawMessage
	fail    error
}

func newMemory() *memory {
	return &memory{
		results: map[[2]string]string{},
		set:     lottery.Settings{Policy: lottery.PrizePolicy{UnitPrize: 70}, MinStake: 1, Theme: "clam"},
		prefs:   map[string]json.RawMessage{},
	}
}

func (m *memory) Merge(_ context.Context, s lottery.Sale, prize func(int64) int64) (lottery.SaleOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return lottery.SaleOutcome{}, m.fail
	}
	for i := range m.sales {
		b := &m.sales[i]
		if b.Number == s.Number && b.Day == s.Day && b.Slot == s.Slot {
			b.Stake += s.Stake
			b.Prize = prize(b.Stake)
			b.LastModified = s.At
			return lottery.SaleOutcome{Created: false, Bet: *b}, nil
		}
	}
	m.nextID++
	b := lottery.Bet{ID: m.nextID, Number: s.Number, Stake: s.Stake, Prize: prize(s.Stake), LastModified: s.At, Slot: s.Slot, Day: s.Day}
	m.sales = append(m.sales, b)
	return lottery.SaleOutcome{Created: true, Bet: b}, nil
}

func (m *memory) DeleteLatest(context.Context) (lottery.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sales) == 0 {
		return lottery.Bet{}, lottery.ErrNothingToUndo
	}
	idx := 0
	for i, b := range m.sales {
		best := m.sales[idx]
		if b.LastModified.After(best.LastModified) || (b.LastModified.Equal(best.LastModified) && b.ID > best.ID) {
			idx = i
		}
	}
	b := m.sales[idx]
	m.sales = append(m.sales[:idx], m.sales[idx+1:]...)
	return b, nil
}

// inWindow compara strings no layout ISO, que ordenam como datas
func inWindow(w lottery.Window, day string) bool {
	if w.From != "" && day < w.From {
		return false
	}
	if w.To != "" && day > w.To {
		return false
	}
	return true
}

// sortSaleRows: mais recente primeiro, depois número (ORDER BY do repo)
func sortSaleRows(rows []lottery.GroupedSaleRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].LastModified.Equal(rows[j].LastModified) {
			return rows[i].LastModified.After(rows[j].LastModified)
		}
		return rows[i].Number < rows[j].Number
	})
}

// sortWinnerRows: dia desc, depois a ordem configurada dos sorteios
func sortWinnerRows(rows []lottery.WinnerRow, slots lottery.SlotSet) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day > rows[j].Day
		}
		return slots.Index(rows[i].Slot) < slots.Index(rows[j].Slot)
	})
}

func (m *memory) match(q lottery.Query, day, slot string) bool {
	return inWindow(q.Window, day) && (q.Slot == "" || q.Slot == slot)
}

func (m *memory) Grouped(_ context.Context, q lottery.Query) ([]lottery.GroupedSaleRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := []lottery.GroupedSaleRow{}
	for _, b := range m.sales {
		if m.match(q, b.Day, b.Slot) {
			out = append(out, lottery.GroupedSaleRow{Number: b.Number, Day: b.Day, Slot: b.Slot, Stake: b.Stake, Prize: b.Prize, LastModified: b.LastModified})
		}
	}
	sortSaleRows(out)
	return out, nil
}

func (m *memory) History(_ context.Context, number string, limit int) ([]lottery.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []lottery.Bet{}
	for _, b := range m.sales {
		if b.Number == number {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Stats(_ context.Context, number string) (lottery.NumberStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := lottery.NumberStats{Number: number}
	for _, b := range m.sales {
		if b.Number != number {
			continue
		}
		st.Records++
		st.TotalStake += b.Stake
		st.TotalPrize += b.Prize
		if st.LastSale == nil || b.LastModified.After(*st.LastSale) {
			t := b.LastModified
			st.LastSale = &t
		}
	}
	for _, n := range m.results {
		if n == number {
			st.TimesWon++
		}
	}
	return st, nil
}

func (m *memory) TopNumbers(_ context.Context, q lottery.Query, limit int) ([]lottery.NumberTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := map[string]*lottery.NumberTotal{}
	for _, b := range m.sales {
		if !m.match(q, b.Day, b.Slot) {
			continue
		}
		t, ok := acc[b.Number]
		if !ok {
			t = &lottery.NumberTotal{Number: b.Number}
			acc[b.Number] = t
		}
		t.Records++
		t.Stake += b.Stake
	}
	out := []lottery.NumberTotal{}
	for _, t := range acc {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stake != out[j].Stake {
			return out[i].Stake > out[j].Stake
		}
		return out[i].Number < out[j].Number
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) SlotTotals(_ context.Context, q lottery.Query) ([]lottery.SlotTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []lottery.SlotTotal{}
	for _, slot := range q.SlotOrder {
		var total int64
		for _, b := range m.sales {
			if b.Slot == slot && m.match(q, b.Day, b.Slot) {
				total += b.Stake
			}
		}
		if total > 0 {
			out = append(out, lottery.SlotTotal{Slot: slot, Stake: total})
		}
	}
	return out, nil
}

func (m *memory) Upsert(_ context.Context, r lottery.DrawResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	k := [2]string{r.Day, r.Slot}
	_, exists := m.results[k]
	m.results[k] = r.Number
	return !exists, nil
}

func (m *memory) Get(_ context.Context, day, slot string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.results[[2]string{day, slot}]
	return n, ok, nil
}

func (m *memory) Recent(_ context.Context, limit int, slotOrder []string) ([]lottery.DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := []lottery.WinnerRow{}
	for k, n := range m.results {
		rows = append(rows, lottery.WinnerRow{Day: k[0], Slot: k[1], Number: n})
	}
	sortWinnerRows(rows, lottery.MustParseSlots(lottery.DefaultSlots))
	out := []lottery.DrawResult{}
	for _, r := range rows {
		out = append(out, lottery.DrawResult{Day: r.Day, Slot: r.Slot, Number: r.Number})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Report(_ context.Context, q lottery.Query) ([]lottery.WinnerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := []lottery.WinnerRow{}
	for k, n := range m.results {
		if !m.match(q, k[0], k[1]) {
			continue
		}
		row := lottery.WinnerRow{Day: k[0], Slot: k[1], Number: n}
		for _, b := range m.sales {
			if b.Day == k[0] && b.Slot == k[1] && b.Number == n {
				row.Stake += b.Stake
				row.Prize += b.Prize
			}
		}
		rows = append(rows, row)
	}
	sortWinnerRows(rows, lottery.MustParseSlots(lottery.DefaultSlots))
	return rows, nil
}

func (m *memory) Payouts(_ context.Context, q lottery.Query) ([]lottery.SlotPayout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []lottery.SlotPayout{}
	for _, slot := range q.SlotOrder {
		p := lottery.SlotPayout{Slot: slot}
		for _, b := range m.sales {
			if b.Slot != slot || !m.match(q, b.Day, b.Slot) {
				continue
			}
			p.Stake += b.Stake
			if m.results[[2]string{b.Day, b.Slot}] == b.Number {
				p.Paid += b.Prize
			}
		}
		if p.Stake > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memory) Load(context.Context) (lottery.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return lottery.Settings{}, m.fail
	}
	return m.set, nil
}

func (m *memory) Update(_ context.Context, unitPrize, minStake int64, theme string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set.Policy.UnitPrize, m.set.MinStake, m.set.Theme = unitPrize, minStake, theme
	return nil
}

func (m *memory) SetCredentialHash(_ context.Context, hash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set.CredentialHash = hash
	return nil
}

func (m *memory) GetPreference(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.prefs[key]
	return v, ok, nil
}

func (m *memory) PutPreference(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}

func (m *memory) ListPreferences(context.Context) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]json.RawMessage, len(m.prefs))
	for k, v := range m.prefs {
		out[k] = v
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type mapCache struct {
	m      map[string]string
	hits   int
	broken bool
	// readOnly: leituras funcionam, Set/Delete falham
	readOnly bool
}

func (c *mapCache) Get(_ context.Context, day, slot string) (string, bool, error) {
	if c.broken {
		return "", false, errors.New("redis down")
	}
	n, ok := c.m[day+"|"+slot]
	if ok {
		c.hits++
	}
	return n, ok, nil
}

func (c *mapCache) Set(_ context.Context, r lottery.DrawResult) error {
	if c.broken || c.readOnly {
		return errors.New("redis down")
	}
	c.m[r.Day+"|"+r.Slot] = r.Number
	return nil
}

func (c *mapCache) Delete(_ context.Context, day, slot string) error {
	if c.broken || c.readOnly {
		return errors.New("redis down")
	}
	delete(c.m, day+"|"+slot)
	return nil
}

// fakeClock avança manualmente
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	mem      *memory
	clock    *fakeClock
	publ     *recordingPublisher
	cache    *mapCache
	settings *Settings
	ledger   *Ledger
	results  *Results
	reports  *Reports
	errOps   []string
}

func newFixture(kind lottery.PolicyKind) *fixture {
	f := &fixture{
		mem: newMemory(),
		// quarta-feira, 10:15 em Manágua (UTC-6)
		clock: &fakeClock{t: time.Date(2024, 1, 10, 16, 15, 0, 0, time.UTC)},
		publ:  &recordingPublisher{},
		cache: &mapCache{m: map[string]string{}},
	}
	loc := time.FixedZone("CST", -6*3600)
	clock := NewClock(f.clock.now, loc)
	slots := lottery.MustParseSlots(lottery.DefaultSlots)
	hooks := Hooks{OnError: func(op string) { f.errOps = append(f.errOps, op) }}
	log := zap.NewNop()

	f.settings = NewSettings(f.mem, kind, log, hooks)
	f.settings.cost = 4 // bcrypt.MinCost
	if _, err := f.settings.Reload(context.Background()); err != nil {
		panic(err)
	}
	f.ledger = NewLedger(f.mem, f.settings, slots, clock, f.publ, log, hooks)
	f.results = NewResults(f.mem, f.cache, slots, clock, f.publ, log, hooks)
	f.reports = NewReports(f.mem, f.mem, slots, clock, log, hooks)
	return f
}
