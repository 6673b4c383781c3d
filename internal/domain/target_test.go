package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetIncident_IsPast(t *testing.T) {
	today := MonthDay{Month: time.August, Day: 30}

	tests := []struct {
		name   string
		month  time.Month
		day    int
		isPast bool
	}{
		{"earlier month", time.July, 31, true},
		{"same month earlier day", time.August, 29, true},
		{"today", time.August, 30, false},
		{"same month later day", time.August, 31, false},
		{"later month earlier day", time.September, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := TargetIncident{ContractID: "c", Month: tt.month, Day: tt.day, IncidentType: IncidentAny}
			assert.Equal(t, tt.isPast, target.IsPast(today))
		})
	}
}

func TestTargetIncident_Matches(t *testing.T) {
	today := MonthDay{Month: time.August, Day: 30}
	target := TargetIncident{ContractID: "X", Month: time.August, Day: 30, IncidentType: IncidentRed}

	assert.True(t, target.Matches(today, IncidentRed))
	assert.False(t, target.Matches(today, IncidentAny))
	assert.False(t, target.Matches(MonthDay{Month: time.August, Day: 31}, IncidentRed))
	assert.False(t, target.Matches(MonthDay{Month: time.September, Day: 30}, IncidentRed))
}

func TestMonthDayOf_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*60*60)
	// 20:00 on Aug 30 at UTC-7 is already Aug 31 in UTC.
	ts := time.Date(2023, time.August, 30, 20, 0, 0, 0, loc)

	assert.Equal(t, MonthDay{Month: time.August, Day: 31}, MonthDayOf(ts))
}

func TestParseMonthDay(t *testing.T) {
	md, err := ParseMonthDay("09-06")
	require.NoError(t, err)
	assert.Equal(t, MonthDay{Month: time.September, Day: 6}, md)
	assert.Equal(t, "09-06", md.String())

	md, err = ParseMonthDay("7-4")
	require.NoError(t, err)
	assert.Equal(t, MonthDay{Month: time.July, Day: 4}, md)

	for _, bad := range []string{"", "13-01", "00-10", "02-32", "sept-6", "09-06x", "09-06-01", "+9-06", "009-06", " 09-06", "09-"} {
		_, err := ParseMonthDay(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestBetBatch_ContractIDs(t *testing.T) {
	batch := BetBatch{Bets: []BetRequest{
		{ContractID: "a", Outcome: OutcomeYes, Amount: 500},
		{ContractID: "a", Outcome: OutcomeYes, Amount: 500},
		{ContractID: "b", Outcome: OutcomeYes, Amount: 250},
	}}

	assert.Equal(t, []string{"a", "b"}, batch.ContractIDs())
	assert.Equal(t, 1250, batch.TotalAmount())
}
