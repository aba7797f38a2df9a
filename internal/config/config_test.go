package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbyscope-project/lobbyscope/internal/enrich"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, fetch.DefaultDirectoryURL, cfg.Directory.EndpointURL)
	assert.Equal(t, DefaultAPIPort, cfg.API.Port)
	assert.FileExists(t, filepath.Join(dir, DefaultConfigFile))
}

func TestLoadOverlaysOnDefaults(t *testing.T) {
	dir := t.TempDir()
	partial := `{"directory":{"refresh_interval_sec":60},"mqtt":{"enabled":true,"broker_url":"broker.example.org"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(partial), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Directory.RefreshIntervalSec)
	assert.Equal(t, "broker.example.org", cfg.MQTT.BrokerURL)
	// Untouched sections keep their defaults.
	assert.True(t, cfg.Directory.UseFallbackRoutes)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("{nope"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestUpdateField(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.UpdateField("directory", "refresh_interval_sec", 30))
	assert.Equal(t, 30, cfg.Directory.RefreshIntervalSec)

	assert.Error(t, cfg.UpdateField("nope", "x", 1))
	assert.Error(t, cfg.UpdateField("directory", "nope", 1))
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		result := Validate(DefaultConfig())
		assert.True(t, result.IsValid(), "errors: %v", result.Errors)
	})

	t.Run("missing endpoint is an error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Directory.EndpointURL = ""
		result := Validate(cfg)
		require.False(t, result.IsValid())
		assert.Equal(t, "directory.endpoint_url", result.Errors[0].Field)
	})

	t.Run("physical table without merge mode is an error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enrichment.PhysicalMapData = true
		cfg.Enrichment.PhysicalTableFile = "maps.json"
		assert.False(t, Validate(cfg).IsValid())

		cfg.Enrichment.PhysicalMergeMode = "merge"
		assert.True(t, Validate(cfg).IsValid())
	})

	t.Run("enabled mqtt requires a broker", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MQTT.Enabled = true
		assert.False(t, Validate(cfg).IsValid())
	})

	t.Run("short refresh interval warns but passes", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Directory.RefreshIntervalSec = 2
		result := Validate(cfg)
		assert.True(t, result.IsValid())
		assert.NotEmpty(t, result.Warnings)
	})
}

func TestLoadPhysicalTable(t *testing.T) {
	t.Run("no file configured", func(t *testing.T) {
		table, err := DefaultConfig().LoadPhysicalTable()
		require.NoError(t, err)
		assert.Nil(t, table)
	})

	t.Run("reads and parses the file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "maps.json")
		payload, _ := json.Marshal(map[string]enrich.PhysicalMapData{
			"canyon": {Pools: 5, Loose: 12, MaxSlots: 4},
		})
		require.NoError(t, os.WriteFile(file, payload, 0644))

		cfg := DefaultConfig()
		cfg.Enrichment.PhysicalTableFile = file
		table, err := cfg.LoadPhysicalTable()
		require.NoError(t, err)
		assert.Equal(t, 5, table["canyon"].Pools)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enrichment.PhysicalTableFile = "/nonexistent/maps.json"
		_, err := cfg.LoadPhysicalTable()
		assert.Error(t, err)
	})
}
