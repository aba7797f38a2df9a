// Package config handles configuration loading, validation, and persistence
// for the Lobbyscope directory watcher.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/enrich"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
)

const (
	DefaultConfigDir       = "config"
	DefaultConfigFile      = "config.json"
	DefaultAPIPort         = 5085
	DefaultRefreshInterval = 15
)

// Config is the root configuration structure for Lobbyscope.
type Config struct {
	mu   sync.RWMutex
	path string

	Directory  DirectoryConfig  `json:"directory"`
	Enrichment EnrichmentConfig `json:"enrichment"`
	API        APIConfig        `json:"api"`
	Storage    StorageConfig    `json:"storage"`
	MQTT       MQTTConfig       `json:"mqtt"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
}

// DirectoryConfig controls how the lobby directory is polled.
type DirectoryConfig struct {
	// EndpointURL overrides the default directory endpoint.
	EndpointURL string `json:"endpoint_url"`
	// UseFallbackRoutes enables the relay chain when the direct route fails.
	UseFallbackRoutes bool `json:"use_fallback_routes"`
	// CacheBust appends a uniquing query parameter to every request.
	CacheBust bool `json:"cache_bust"`
	// RefreshIntervalSec is the scheduler's polling period.
	RefreshIntervalSec int `json:"refresh_interval_sec"`
}

// EnrichmentConfig controls the optional metadata enrichment steps.
type EnrichmentConfig struct {
	// Maps enables per-session map metadata lookups.
	Maps bool `json:"maps"`
	// MapDataURL overrides the default map metadata service.
	MapDataURL string `json:"map_data_url"`
	// PhysicalMapData enables pool/loose/slot annotation by map file.
	PhysicalMapData bool `json:"physical_map_data"`
	// PhysicalTableFile optionally points at a JSON file of per-map
	// physical data; PhysicalMergeMode is then required.
	PhysicalTableFile string `json:"physical_table_file"`
	PhysicalMergeMode string `json:"physical_merge_mode"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// StorageConfig holds snapshot history settings.
type StorageConfig struct {
	Enabled            bool   `json:"enabled"`
	Path               string `json:"path"`
	RetentionSnapshots int    `json:"retention_snapshots"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	CAFile    string `json:"ca_file"`
	ClientID  string `json:"client_id"`
	TopicRoot string `json:"topic_root"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	TLSEnabled     bool     `json:"tls_enabled"`
	TLSCertFile    string   `json:"tls_cert_file"`
	TLSKeyFile     string   `json:"tls_key_file"`
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Directory: DirectoryConfig{
			EndpointURL:        fetch.DefaultDirectoryURL,
			UseFallbackRoutes:  true,
			CacheBust:          true,
			RefreshIntervalSec: DefaultRefreshInterval,
		},
		Enrichment: EnrichmentConfig{
			Maps:       true,
			MapDataURL: enrich.DefaultMapDataURL,
		},
		API: APIConfig{
			Enabled: true,
			Port:    DefaultAPIPort,
		},
		Storage: StorageConfig{
			Enabled:            true,
			Path:               filepath.Join("data", "lobbyscope.db"),
			RetentionSnapshots: 2880,
		},
		MQTT: MQTTConfig{
			Enabled:   false,
			Port:      8883,
			UseTLS:    true,
			TopicRoot: "lobbyscope",
		},
		Security: SecurityConfig{
			RateLimitRPS: 100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Directory:  "logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// Load reads configuration from a JSON file.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save config to persist any new default fields added in code updates.
	// This ensures config.json always reflects the complete set of options.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetDirectory returns a copy of the directory configuration.
func (c *Config) GetDirectory() DirectoryConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Directory
}

// GetEnrichment returns a copy of the enrichment configuration.
func (c *Config) GetEnrichment() EnrichmentConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Enrichment
}

// SetDirectory updates the directory configuration.
func (c *Config) SetDirectory(data DirectoryConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Directory = data
}

// SetEnrichment updates the enrichment configuration.
func (c *Config) SetEnrichment(data EnrichmentConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Enrichment = data
}

// UpdateField updates a single top-level field by its JSON key path, for
// example "directory.refresh_interval_sec".
func (c *Config) UpdateField(section, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to snapshot config: %w", err)
	}
	m := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to snapshot config: %w", err)
	}

	sec, ok := m[section]
	if !ok {
		return fmt.Errorf("unknown config section %q", section)
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(sec, &fields); err != nil {
		return fmt.Errorf("failed to decode section %q: %w", section, err)
	}
	if _, ok := fields[key]; !ok {
		return fmt.Errorf("unknown config field %q in section %q", key, section)
	}
	fields[key] = value

	updatedSec, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to update field %s.%s: %w", section, key, err)
	}
	m[section] = updatedSec

	updated, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to update field %s.%s: %w", section, key, err)
	}
	if err := json.Unmarshal(updated, c); err != nil {
		return fmt.Errorf("failed to update field %s.%s: %w", section, key, err)
	}
	return nil
}

// LoadPhysicalTable reads the caller physical table file, when one is
// configured. Returns nil when no file is set.
func (c *Config) LoadPhysicalTable() (map[string]enrich.PhysicalMapData, error) {
	c.mu.RLock()
	file := c.Enrichment.PhysicalTableFile
	c.mu.RUnlock()

	if file == "" {
		return nil, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read physical table %s: %w", file, err)
	}
	table := make(map[string]enrich.PhysicalMapData)
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse physical table %s: %w", file, err)
	}
	return table, nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}
