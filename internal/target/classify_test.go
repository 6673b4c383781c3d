package target

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/calabi/internal/domain"
)

const trustedCreator = "HBlWMFF8XkcatdnIfNt0RPoCrXy1"

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name   string
		market domain.Market
		want   domain.TargetIncident
		ok     bool
	}{
		{
			name:   "any incident",
			market: domain.Market{ID: "X", CreatorID: trustedCreator, Question: "Will GitHub have any incident on August 30th 2023?"},
			want:   incident("X", time.August, 30, domain.IncidentAny),
			ok:     true,
		},
		{
			name:   "red incident",
			market: domain.Market{ID: "R", CreatorID: "fwGK5b9peFQbclczNeQdgCtjlYT2", Question: "Will GitHub have a red incident on September 2nd?"},
			want:   incident("R", time.September, 2, domain.IncidentRed),
			ok:     true,
		},
		{
			name:   "untrusted creator",
			market: domain.Market{ID: "U", CreatorID: "someone", Question: "Will GitHub have any incident on August 30th?"},
		},
		{
			name:   "unrelated question",
			market: domain.Market{ID: "Q", CreatorID: trustedCreator, Question: "Will it rain on August 30th?"},
		},
		{
			name:   "phrase is case sensitive",
			market: domain.Market{ID: "L", CreatorID: trustedCreator, Question: "will github have any incident on August 30th?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := c.Classify(tt.market)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClassifier_UnparsableDate(t *testing.T) {
	c := NewClassifier(DefaultRules())

	_, _, err := c.Classify(domain.Market{ID: "X", CreatorID: trustedCreator, Question: "Will GitHub have any incident tomorrow?"})
	require.ErrorIs(t, err, ErrUnparsableTarget)

	_, _, err = c.Classify(domain.Market{ID: "X", CreatorID: trustedCreator, Question: "Will GitHub have any incident on Thursday 4?"})
	require.ErrorIs(t, err, ErrUnparsableTarget)
	assert.Contains(t, err.Error(), "month missing")
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier(Rules{
		TrustedCreators: []string{"me"},
		AnyPhrases:      []string{"outage"},
	})

	got, ok, err := c.Classify(domain.Market{ID: "O", CreatorID: "me", Question: "Any outage on October 5?"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, incident("O", time.October, 5, domain.IncidentAny), got)

	_, ok, err = c.Classify(domain.Market{ID: "X", CreatorID: trustedCreator, Question: "Any outage on October 5?"})
	require.NoError(t, err)
	assert.False(t, ok)
}
