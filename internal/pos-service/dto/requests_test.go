package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

func TestRecordSaleRequestStake(t *testing.T) {
	for body, want := range map[string]int64{
		`{"number":"5","stake":10}`:     10,
		`{"number":"5","stake":"25"}`:   25,
		`{"number":"5","stake":"10.0"}`: 10,
	} {
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		var req RecordSaleRequest
		require.NoError(t, dec.Decode(&req), body)
		require.NoError(t, req.Validate(), body)
		got, err := req.StakeValue()
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}

	req := RecordSaleRequest{Number: "5", Stake: "10.5"}
	_, err := req.StakeValue()
	assert.ErrorIs(t, err, lottery.ErrInvalidStake)
}

func TestRecordSaleRequestValidate(t *testing.T) {
	assert.Error(t, (&RecordSaleRequest{Stake: "10"}).Validate())
	assert.Error(t, (&RecordSaleRequest{Number: "5"}).Validate())
	assert.Error(t, (&RecordSaleRequest{Number: "1234", Stake: "1"}).Validate())
}

func TestRegisterWinnerRequestValidate(t *testing.T) {
	assert.NoError(t, (&RegisterWinnerRequest{Day: "2024-01-10", Slot: "06 PM", Number: "7"}).Validate())
	assert.Error(t, (&RegisterWinnerRequest{Day: "2024-1-10", Slot: "06 PM", Number: "7"}).Validate())
	assert.Error(t, (&RegisterWinnerRequest{Day: "2024-01-10", Number: "7"}).Validate())
}

func TestUpdateSettingsRequestValidate(t *testing.T) {
	unit, zero, blank, theme := int64(80), int64(0), "  ", "dark"

	assert.NoError(t, (&UpdateSettingsRequest{}).Validate())
	assert.True(t, (&UpdateSettingsRequest{}).Empty())
	assert.NoError(t, (&UpdateSettingsRequest{UnitPrize: &unit, Theme: &theme}).Validate())
	assert.Error(t, (&UpdateSettingsRequest{Theme: &blank}).Validate())

	neg := int64(-1)
	assert.Error(t, (&UpdateSettingsRequest{MinStake: &neg}).Validate())
	huge := int64(10_000_000_000)
	assert.Error(t, (&UpdateSettingsRequest{UnitPrize: &huge}).Validate())
	// zero é tratado como vazio pelo ozzo; o serviço rejeita com ErrInvalidSetting
	assert.NoError(t, (&UpdateSettingsRequest{UnitPrize: &zero}).Validate())
}

func TestPreferenceRequestValidate(t *testing.T) {
	assert.Error(t, (&PreferenceRequest{}).Validate())
	assert.NoError(t, (&PreferenceRequest{Value: json.RawMessage(`{"w":120}`)}).Validate())
}
