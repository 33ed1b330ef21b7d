package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults validate", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, cfg.Backend.Kind)
		assert.Equal(t, "peppol", cfg.SMP.IdentifierType)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "smpd.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
backend:
  kind: file
  file:
    dir: /var/lib/smp
smp:
  identifier_type: bdxr
  auto_create_transport_profiles: true
log:
  level: debug
  format: text
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, BackendFile, cfg.Backend.Kind)
		assert.Equal(t, "/var/lib/smp", cfg.Backend.File.Dir)
		assert.Equal(t, "bdxr", cfg.SMP.IdentifierType)
		assert.True(t, cfg.SMP.AutoCreateTransportProfiles)
		assert.Equal(t, "text", cfg.Log.Format)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("SMP_SMP_IDENTIFIER_TYPE", "simple")
		t.Setenv("SMP_AUDIT_SINK", "kafka")
		t.Setenv("SMP_AUDIT_KAFKA_BROKERS", "k1:9092,k2:9092")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "simple", cfg.SMP.IdentifierType)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.Kafka.Brokers)
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend.Kind = "mongo" }},
		{"unknown identifier type", func(c *Config) { c.SMP.IdentifierType = "oasis" }},
		{"postgres without dsn", func(c *Config) { c.Backend.Kind = BackendPostgres }},
		{"redis without url", func(c *Config) { c.Backend.Kind = BackendRedis }},
		{"file without dir", func(c *Config) { c.Backend.Kind = BackendFile; c.Backend.File.Dir = "" }},
		{"kafka sink without brokers", func(c *Config) { c.Audit.Sink = "kafka" }},
		{"password without keystore", func(c *Config) { c.Keys.KeystorePassword = "secret" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"negative audit buffer", func(c *Config) { c.Audit.Buffer = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
