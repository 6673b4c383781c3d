package target

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayFromQuestion(t *testing.T) {
	tests := []struct {
		question string
		want     int
		ok       bool
	}{
		{"Will GitHub have any incident on August 30th 2023?", 30, true},
		{"Will GitHub have any incident on August 1st", 1, true},
		{"Will GitHub have any incident on August 01st", 1, true},
		{"Will GitHub have any incident?", 0, false},
		{"Will GitHub have any incident August 30th?", 0, false},
		{"Will GitHub have any incident on on August 30th?", 30, true},
		{"Will GitHub have a red incident on March 45?", 0, false},
		{"Will GitHub have a red incident on March 0?", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, ok := DayFromQuestion(tt.question)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthFromQuestion(t *testing.T) {
	tests := []struct {
		question string
		want     time.Month
		ok       bool
	}{
		{"Will GitHub have any incident on August 30th 2023?", time.August, true},
		{"will github have a red incident on DECEMBER 1?", time.December, true},
		{"Will GitHub have any incident on January 3rd?", time.January, true},
		{"Will GitHub have any incident on May 2?", time.May, true},
		{"Will GitHub have any incident on March 2, not April?", time.March, true},
		{"Any incident in Mayfair on the 2nd?", 0, false},
		{"Will GitHub have an incident that may last an hour on August 30th?", time.August, true},
		{"Will GitHub have an incident that may happen in October?", time.October, true},
		{"Will GitHub have an incident that may happen?", 0, false},
		{"Will GitHub have any incident in May, on June 4?", time.June, true},
		{"Will GitHub have any incident tomorrow?", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, ok := MonthFromQuestion(tt.question)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
