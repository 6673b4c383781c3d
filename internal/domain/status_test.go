package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIncidentType(t *testing.T) {
	tests := []struct {
		indicator string
		want      IncidentType
		wantErr   bool
	}{
		{indicator: "minor", want: IncidentAny},
		{indicator: "major", want: IncidentAny},
		{indicator: "critical", want: IncidentRed},
		{indicator: "none", wantErr: true},
		{indicator: "maintenance", wantErr: true},
		{indicator: "", wantErr: true},
		{indicator: "Critical", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.indicator, func(t *testing.T) {
			got, err := ParseIncidentType(tt.indicator)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownIndicator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusEnvelope_Decode(t *testing.T) {
	body := `{"page":{"id":"kctbh9vrtdwd"},"status":{"indicator":"critical","description":"Major Service Outage"}}`

	var env StatusEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))

	assert.Equal(t, "critical", env.Indicator())
	assert.Equal(t, "Major Service Outage", env.Description())
	assert.False(t, env.IsOK())

	env.Status.Indicator = IndicatorNone
	assert.True(t, env.IsOK())
}
