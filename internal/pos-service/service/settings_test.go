package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

func TestReloadPicksUpCommittedValues(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()
	assert.Equal(t, int64(700), f.settings.ComputePrize(10))

	// outra instância alterou a linha
	require.NoError(t, f.mem.Update(ctx, 80, 1, "clam"))
	assert.Equal(t, int64(700), f.settings.ComputePrize(10), "snapshot only changes on reload")

	cur, err := f.settings.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, lottery.PerUnit, cur.Policy.Kind)
	assert.Equal(t, int64(800), f.settings.ComputePrize(10))
}

func TestUpdateWritesThrough(t *testing.T) {
	f := newFixture(lottery.PerFiveUnit)
	ctx := context.Background()

	cur, err := f.settings.Update(ctx, SettingsUpdate{UnitPrize: ptr(int64(400)), Theme: ptr(" dark ")})
	require.NoError(t, err)
	assert.Equal(t, int64(400), cur.Policy.UnitPrize)
	assert.Equal(t, lottery.PerFiveUnit, cur.Policy.Kind)
	assert.Equal(t, "dark", cur.Theme)
	assert.Equal(t, int64(1), cur.MinStake)

	assert.Equal(t, int64(400), f.mem.set.Policy.UnitPrize)
	assert.Equal(t, int64(800), f.ledger.ComputePrize(10))
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	for _, u := range []SettingsUpdate{
		{UnitPrize: ptr(int64(0))},
		{UnitPrize: ptr(int64(-70))},
		{UnitPrize: ptr(lottery.MaxUnitPrize + 1)},
		{UnitPrize: ptr(int64(10_000_000_000))},
		{MinStake: ptr(int64(0))},
		{Theme: ptr("  ")},
	} {
		_, err := f.settings.Update(ctx, u)
		assert.ErrorIs(t, err, lottery.ErrInvalidSetting)
	}
	assert.Equal(t, int64(70), f.mem.set.Policy.UnitPrize)
}

func TestLargestPrizeDoesNotOverflow(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.settings.Update(ctx, SettingsUpdate{UnitPrize: ptr(lottery.MaxUnitPrize)})
	require.NoError(t, err)
	assert.Equal(t, lottery.MaxStake*lottery.MaxUnitPrize, f.ledger.ComputePrize(lottery.MaxStake))
	assert.Positive(t, f.ledger.ComputePrize(lottery.MaxStake))
}

func TestLoginBypassedWithoutCredential(t *testing.T) {
	f := newFixture(lottery.PerUnit)

	bypassed, err := f.settings.Login(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, bypassed)
}

func TestChangeCredentialAndLogin(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	// primeira senha: não há atual para conferir
	require.NoError(t, f.settings.ChangeCredential(ctx, "", "s3cret", "s3cret"))
	assert.True(t, f.settings.Current().LoginRequired())
	assert.NotEqual(t, "s3cret", *f.mem.set.CredentialHash)

	bypassed, err := f.settings.Login(ctx, "s3cret")
	require.NoError(t, err)
	assert.False(t, bypassed)

	_, err = f.settings.Login(ctx, "wrong")
	assert.ErrorIs(t, err, lottery.ErrCredentialMismatch)

	assert.ErrorIs(t, f.settings.ChangeCredential(ctx, "wrong", "next", "next"), lottery.ErrCredentialMismatch)
	assert.ErrorIs(t, f.settings.ChangeCredential(ctx, "s3cret", "", ""), lottery.ErrCredentialMismatch)
	assert.ErrorIs(t, f.settings.ChangeCredential(ctx, "s3cret", "next", "nxet"), lottery.ErrCredentialMismatch)

	require.NoError(t, f.settings.ChangeCredential(ctx, "s3cret", "next", "next"))
	_, err = f.settings.Login(ctx, "next")
	assert.NoError(t, err)
	assert.Empty(t, f.errOps)
}

func TestPreferences(t *testing.T) {
	f := newFixture(lottery.PerUnit)
	ctx := context.Background()

	_, err := f.settings.Preference(ctx, "sales.columns")
	assert.ErrorIs(t, err, lottery.ErrNotFound)

	require.NoError(t, f.settings.SetPreference(ctx, "sales.columns", json.RawMessage(`{"number":60,"stake":90}`)))
	v, err := f.settings.Preference(ctx, "sales.columns")
	require.NoError(t, err)
	assert.JSONEq(t, `{"number":60,"stake":90}`, string(v))

	assert.ErrorIs(t, f.settings.SetPreference(ctx, "", json.RawMessage(`1`)), lottery.ErrInvalidSetting)
	assert.ErrorIs(t, f.settings.SetPreference(ctx, "split", json.RawMessage(`{bad`)), lottery.ErrInvalidSetting)

	all, err := f.settings.Preferences(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
