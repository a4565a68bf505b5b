package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	"github.com/radieske/numbers-lottery-pos/pkg/contracts/events"
)

func TestRegisterWinnerIsIdempotentUpsert(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "7")
	require.NoError(t, err)
	res, err := f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "07")
	require.NoError(t, err)
	assert.Equal(t, lottery.DrawResult{Day: "2024-01-10", Slot: "06 PM", Number: "07"}, res)

	assert.Len(t, f.mem.results, 1)
	n, ok, err := f.results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "07", n)
	assert.Equal(t, []string{events.KindWinnerRegistered, events.KindWinnerRegistered}, f.publ.kinds())
}

func TestRegisterWinnerOverwrites(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "07")
	require.NoError(t, err)
	_, err = f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "31")
	require.NoError(t, err)

	assert.Len(t, f.mem.results, 1)
	n, _, err := f.results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	assert.Equal(t, "31", n, "overwrite invalidates the cached number")
}

func TestGetWinnerNeverServesStaleAfterFailedInvalidate(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "07")
	require.NoError(t, err)
	n, _, err := f.results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	require.Equal(t, "07", n)
	require.Equal(t, "07", f.cache.m["2024-01-10|06 PM"])

	// Redis aceita leitura mas recusa escrita: a chave antiga continua lá
	f.cache.readOnly = true
	_, err = f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "31")
	require.NoError(t, err)
	require.Equal(t, "07", f.cache.m["2024-01-10|06 PM"])

	n, ok, err := f.results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "31", n)

	// Redis volta: a remoção pendente é refeita antes de usar o cache
	f.cache.readOnly = false
	n, _, err = f.results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	assert.Equal(t, "31", n)
	assert.Equal(t, "31", f.cache.m["2024-01-10|06 PM"])
}

// staleReadStore devolve o valor lido e só então dispara um registro concorrente
type staleReadStore struct {
	*memory
	afterRead func()
}

func (s *staleReadStore) Get(ctx context.Context, day, slot string) (string, bool, error) {
	n, ok, err := s.memory.Get(ctx, day, slot)
	if s.afterRead != nil {
		fn := s.afterRead
		s.afterRead = nil
		fn()
	}
	return n, ok, err
}

func TestGetWinnerFillDoesNotOverwriteNewerRegister(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()
	store := &staleReadStore{memory: f.mem}
	results := NewResults(store, f.cache, lottery.MustParseSlots(lottery.DefaultSlots),
		NewClock(f.clock.now, time.UTC), f.publ, zap.NewNop(), Hooks{})

	_, err := results.RegisterWinner(ctx, "2024-01-10", "06 PM", "07")
	require.NoError(t, err)

	store.afterRead = func() {
		_, err := results.RegisterWinner(ctx, "2024-01-10", "06 PM", "31")
		require.NoError(t, err)
	}
	n, _, err := results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	assert.Equal(t, "07", n, "read raced with the register")
	_, cached := f.cache.m["2024-01-10|06 PM"]
	assert.False(t, cached, "older read must not be cached")

	n, _, err = results.GetWinner(ctx, "2024-01-10", "06 PM")
	require.NoError(t, err)
	assert.Equal(t, "31", n)
}

func TestRegisterWinnerValidation(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "100")
	assert.ErrorIs(t, err, lottery.ErrInvalidNumber)
	_, err = f.results.RegisterWinner(ctx, "10/01/2024", "06 PM", "07")
	assert.ErrorIs(t, err, lottery.ErrInvalidDate)
	_, err = f.results.RegisterWinner(ctx, "2024-01-10", "", "07")
	assert.ErrorIs(t, err, lottery.ErrInvalidSlot)
	assert.Empty(t, f.mem.results)
}

func TestGetWinnerUsesCacheAndFallsBack(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()
	f.mem.results[[2]string{"2024-01-09", "11 AM"}] = "42"

	n, ok, err := f.results.GetWinner(ctx, "2024-01-09", "11 AM")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", n)
	assert.Equal(t, 0, f.cache.hits)

	_, _, err = f.results.GetWinner(ctx, "2024-01-09", "11 AM")
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	f.cache.broken = true
	n, ok, err = f.results.GetWinner(ctx, "2024-01-09", "11 AM")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", n)

	_, ok, err = f.results.GetWinner(ctx, "2024-01-08", "11 AM")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterWinnerStorageFailure(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	f.mem.fail = errors.New("timeout")

	_, err := f.results.RegisterWinner(context.Background(), "2024-01-10", "06 PM", "07")
	assert.Error(t, err)
	assert.Equal(t, []string{"register_winner"}, f.errOps)
	assert.Empty(t, f.cache.m)
}

func TestRecentWinners(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()
	for _, r := range []lottery.DrawResult{
		{Day: "2024-01-09", Slot: "09 PM", Number: "01"},
		{Day: "2024-01-10", Slot: "03 PM", Number: "02"},
		{Day: "2024-01-10", Slot: "11 AM", Number: "03"},
		{Day: "2024-01-08", Slot: "11 AM", Number: "04"},
	} {
		_, err := f.results.RegisterWinner(ctx, r.Day, r.Slot, r.Number)
		require.NoError(t, err)
	}

	got, err := f.results.RecentWinners(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []lottery.DrawResult{
		{Day: "2024-01-10", Slot: "11 AM", Number: "03"},
		{Day: "2024-01-10", Slot: "03 PM", Number: "02"},
		{Day: "2024-01-09", Slot: "09 PM", Number: "01"},
	}, got)

	got, err = f.results.RecentWinners(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestQueryWinnersAnnotatesSales(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.ledger.RecordSale(ctx, "07", 10, "06 PM")
	require.NoError(t, err)
	_, err = f.ledger.RecordSale(ctx, "08", 99, "06 PM")
	require.NoError(t, err)
	_, err = f.results.RegisterWinner(ctx, "2024-01-10", "06 PM", "07")
	require.NoError(t, err)
	_, err = f.results.RegisterWinner(ctx, "2024-01-10", "09 PM", "55")
	require.NoError(t, err)
	_, err = f.results.RegisterWinner(ctx, "2024-01-09", "09 PM", "07")
	require.NoError(t, err)

	rep, err := f.results.QueryWinners(ctx, lottery.FilterRequest{Period: "daily"})
	require.NoError(t, err)
	assert.Equal(t, []lottery.WinnerRow{
		{Day: "2024-01-10", Slot: "06 PM", Number: "07", Stake: 10, Prize: 700},
		{Day: "2024-01-10", Slot: "09 PM", Number: "55"},
	}, rep.Rows)
	assert.Equal(t, int64(10), rep.TotalStake)
	assert.Equal(t, int64(700), rep.TotalPrize)
	assert.Equal(t, lottery.WinnersColumns, rep.Columns)

	_, err = f.results.QueryWinners(ctx, lottery.FilterRequest{Period: "monthly", Month: "13", Year: "2024"})
	assert.ErrorIs(t, err, lottery.ErrInvalidFilter)
}
