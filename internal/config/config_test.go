package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipdoc/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadFiles(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Port)
	assert.Equal(t, "https://api.novaposhta.ua/v2.0/json/", cfg.NovaPoshtaBaseURL)
	assert.Equal(t, 30*time.Second, cfg.NovaPoshtaTimeout)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, "shipments.created", cfg.NotifyChannel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("NOVAPOSHTA_TIMEOUT", "5s")
	t.Setenv("NOVAPOSHTA_USE_MOCK", "true")

	cfg, err := config.LoadFiles()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.NovaPoshtaTimeout)
	assert.True(t, cfg.NovaPoshtaUseMock)
}

func TestLoad_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOVAPOSHTA_SENDER_REF=from-file\nSERVICE_NAME=from-file\n"), 0o600))
	t.Setenv("SERVICE_NAME", "from-env")
	// Registers cleanup for the variable godotenv is about to set.
	t.Setenv("NOVAPOSHTA_SENDER_REF", "")
	require.NoError(t, os.Unsetenv("NOVAPOSHTA_SENDER_REF"))

	cfg, err := config.LoadFiles(path)

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.NovaPoshtaSenderRef)
	assert.Equal(t, "from-env", cfg.ServiceName)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := config.LoadFiles()

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&config.Config{NovaPoshtaUseMock: true}).Validate())
	assert.Error(t, (&config.Config{NovaPoshtaAPIKey: "key"}).Validate())
	assert.NoError(t, (&config.Config{NovaPoshtaAPIKey: "key", NovaPoshtaSenderRef: "sender"}).Validate())
}

func TestConfig_Attributes(t *testing.T) {
	cfg := &config.Config{ServiceName: "shipdoc", Version: "1.2.3", NovaPoshtaUseMock: true}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range cfg.Attributes() {
		attrs[kv.Key] = kv.Value
	}

	assert.Equal(t, "shipdoc", attrs["service.name"].AsString())
	assert.Equal(t, "1.2.3", attrs["service.version"].AsString())
	assert.True(t, attrs["novaposhta.mock"].AsBool())
	assert.False(t, attrs["notify.enabled"].AsBool())
}
