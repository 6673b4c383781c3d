package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/calabi/internal/domain"
)

type stubSource struct {
	env domain.StatusEnvelope
	err error
}

func (s stubSource) GetIncidentStatus(ctx context.Context) (domain.StatusEnvelope, error) {
	return s.env, s.err
}

func envelope(indicator string) domain.StatusEnvelope {
	return domain.StatusEnvelope{Status: domain.Status{Description: "desc", Indicator: indicator}}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		src      stubSource
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "healthy", src: stubSource{env: envelope("none")}, wantCode: exitHealthy, wantOut: "incident:    none"},
		{name: "minor", src: stubSource{env: envelope("minor")}, wantCode: exitIncident, wantOut: "incident:    any"},
		{name: "critical", src: stubSource{env: envelope("critical")}, wantCode: exitIncident, wantOut: "incident:    red"},
		{name: "unknown indicator", src: stubSource{env: envelope("maintenance")}, wantCode: exitError, wantErr: "unknown incident indicator"},
		{name: "poll error", src: stubSource{err: errors.New("feed down")}, wantCode: exitError, wantErr: "feed down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := check(context.Background(), tt.src, &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code)
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}
