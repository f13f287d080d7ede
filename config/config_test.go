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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: \"host=localhost\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "1", cfg.Pricing.Unit.String())
	assert.Equal(t, []int{1800, 2700, 3600}, cfg.Pricing.Durations())
	assert.Equal(t, time.Second, cfg.Scheduler.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ExpiryGrace)
	assert.Equal(t, "database", cfg.Reminders.Backend)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "log", cfg.Events.Driver)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoad_ExplicitZeroGrace(t *testing.T) {
	path := writeConfig(t, `
pricing:
  unit_price: "2.50"
  durations_minutes: [30, 60]
scheduler:
  expiry_grace_minutes: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), cfg.Scheduler.ExpiryGrace)
	assert.Equal(t, "2.5", cfg.Pricing.Unit.String())
	assert.Equal(t, []int{1800, 3600}, cfg.Pricing.Durations())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "database:\n  driver: oracle\n"},
		{name: "bad unit price", body: "pricing:\n  unit_price: abc\n"},
		{name: "negative unit price", body: "pricing:\n  unit_price: \"-1\"\n"},
		{name: "non-positive duration", body: "pricing:\n  durations_minutes: [30, 0]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
