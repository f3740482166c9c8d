package playbook

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `
version: "1.0"
defaults: { timeoutMs: 10000, maxRetries: 3, backoffMs: [2000, 5000, 10000] }
services:
  postgres:
    healthCheck: { command: "pg_isready -h ${PG_HOST:-localhost} -p ${PG_PORT:-5432}", timeoutMs: 5000 }
    recover:
      - { command: "docker compose up -d postgres", timeoutMs: 30000 }
      - { command: "docker compose logs --tail 20 postgres", timeoutMs: 5000, required: false }
    verify: { command: "pg_isready -h ${PG_HOST:-localhost}", timeoutMs: 5000 }
  redis:
    maxRetries: 1
    backoffMs: [500]
    healthCheck: { command: "redis-cli ping" }
    recover:
      - { command: "docker compose restart redis" }
    verify: { command: "redis-cli ping" }
`

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playbooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestStoreLoad(t *testing.T) {
	store, err := NewStore(writeFile(t, sampleFile), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())

	pg, err := store.Get("postgres")
	require.NoError(t, err)
	assert.Equal(t, "pg_isready -h localhost -p 5432", pg.HealthCheck.Template)
	assert.Equal(t, 5*time.Second, pg.HealthCheck.Timeout)
	assert.Equal(t, 3, pg.MaxRetries)
	assert.Equal(t, []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}, pg.Backoff)

	require.Len(t, pg.Steps, 2)
	assert.True(t, pg.Steps[0].Required, "steps are required unless marked otherwise")
	assert.Equal(t, 30*time.Second, pg.Steps[0].Timeout)
	assert.False(t, pg.Steps[1].Required)

	// per-service overrides beat file defaults
	redis, err := store.Get("redis")
	require.NoError(t, err)
	assert.Equal(t, 1, redis.MaxRetries)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, redis.Backoff)
	// default timeout applies when a command has none
	assert.Equal(t, 10*time.Second, redis.HealthCheck.Timeout)
}

func TestStoreGetUnknownService(t *testing.T) {
	store, err := NewStore(writeFile(t, sampleFile), nil)
	require.NoError(t, err)

	_, err = store.Get("unknown-service")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreValidation(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "bad version",
			contents: `{version: "2.0", services: {a: {healthCheck: {command: x}, recover: [{command: y}], verify: {command: z}}}}`,
			wantErr:  "unsupported playbook version",
		},
		{
			name:     "no services",
			contents: `{version: "1.0", services: {}}`,
			wantErr:  "no services",
		},
		{
			name:     "missing health check",
			contents: `{version: "1.0", services: {a: {recover: [{command: y}], verify: {command: z}}}}`,
			wantErr:  "missing healthCheck",
		},
		{
			name:     "missing recover steps",
			contents: `{version: "1.0", services: {a: {healthCheck: {command: x}, verify: {command: z}}}}`,
			wantErr:  "missing recover",
		},
		{
			name:     "missing verify",
			contents: `{version: "1.0", services: {a: {healthCheck: {command: x}, recover: [{command: y}]}}}`,
			wantErr:  "missing verify",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(writeFile(t, tt.contents), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInterpolate(t *testing.T) {
	env := func(name string) (string, bool) {
		if name == "HOST" {
			return "db.internal", true
		}
		return "", false
	}

	tests := []struct {
		template string
		want     string
		wantErr  bool
	}{
		{template: "ping ${HOST}", want: "ping db.internal"},
		{template: "ping ${HOST:-fallback}", want: "ping db.internal"},
		{template: "ping ${MISSING:-fallback}", want: "ping fallback"},
		{template: "ping ${MISSING:-}", want: "ping "},
		{template: "no vars at all", want: "no vars at all"},
		{template: "${HOST}:${MISSING:-5432}", want: "db.internal:5432"},
		{template: "ping ${MISSING}", wantErr: true},
	}

	for _, tt := range tests {
		got, err := Interpolate(tt.template, env)
		if tt.wantErr {
			assert.Error(t, err, tt.template)
			continue
		}
		require.NoError(t, err, tt.template)
		assert.Equal(t, tt.want, got, tt.template)
	}
}

func TestBackoffClamping(t *testing.T) {
	pb := &Playbook{Backoff: []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}}

	assert.Equal(t, time.Second, pb.BackoffFor(1))
	assert.Equal(t, 2*time.Second, pb.BackoffFor(2))
	assert.Equal(t, 5*time.Second, pb.BackoffFor(3))
	// attempts past the schedule clamp to the final entry
	assert.Equal(t, 5*time.Second, pb.BackoffFor(4))
	assert.Equal(t, 5*time.Second, pb.BackoffFor(99))

	empty := &Playbook{}
	assert.Equal(t, time.Duration(0), empty.BackoffFor(1))
}

func TestReloadKeepsOldSetOnError(t *testing.T) {
	path := writeFile(t, sampleFile)
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	require.NoError(t, os.WriteFile(path, []byte("version: {broken"), 0644))

	assert.Error(t, store.Reload())
	assert.Equal(t, 2, store.Len(), "failed reload must keep the previous set")

	_, err = store.Get("postgres")
	assert.NoError(t, err)
}
