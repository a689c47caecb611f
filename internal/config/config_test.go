package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestMustLoadByPath_Defaults(t *testing.T) {
	path := writeConfig(t, `
env: local
storage:
  driver: memory
`)

	cfg := MustLoadByPath(path)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, TransportLog, cfg.Notify.Transport)
	assert.Equal(t, 10, cfg.Metrics.TopN)
	assert.Equal(t, 7, cfg.Metrics.DailyDays)
	assert.Equal(t, 30, cfg.Metrics.WeeklyDays)
	assert.Equal(t, 100, cfg.Pagination.MaxPerPage)
	assert.Equal(t, 50, cfg.Pagination.DefaultPerPage)
	assert.Equal(t, 2*time.Second, cfg.Notify.ReportTimeout)
	assert.Equal(t, time.UTC, cfg.Metrics.Location())
}

func TestMustLoadByPath_KafkaWithoutBrokers(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
notify:
  transport: kafka
`)

	assert.Panics(t, func() { MustLoadByPath(path) })
}

func TestMustLoadByPath_MissingFile(t *testing.T) {
	assert.Panics(t, func() { MustLoadByPath(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestMustLoadConsoleByPath(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://ops.internal:8080
refresh:
  tickets: 10s
`)

	cfg := MustLoadConsoleByPath(path)

	assert.Equal(t, "http://ops.internal:8080", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Refresh.Tickets)
	assert.Equal(t, 60*time.Second, cfg.Refresh.Dashboard)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
}

func TestStorage_URL(t *testing.T) {
	s := Storage{Host: "db", Port: 5432, User: "ops", Password: "p@ss", DbName: "console", SslMode: "disable"}

	assert.Equal(t, "postgres://ops:p%40ss@db:5432/console?sslmode=disable", s.URL())
}
