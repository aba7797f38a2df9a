package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/lobbyscope-project/lobbyscope/internal/enrich"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateDirectory(&cfg.Directory, result)
	validateEnrichment(&cfg.Enrichment, result)
	validateAPI(&cfg.API, result)
	validateStorage(&cfg.Storage, result)
	validateMQTT(&cfg.MQTT, result)
	validateSecurity(&cfg.Security, result)

	return result
}

func validateDirectory(data *DirectoryConfig, result *ValidationResult) {
	if strings.TrimSpace(data.EndpointURL) == "" {
		result.AddError("directory.endpoint_url", "directory endpoint URL is required")
	} else if u, err := url.Parse(data.EndpointURL); err != nil || u.Scheme == "" || u.Host == "" {
		result.AddError("directory.endpoint_url",
			fmt.Sprintf("not a valid URL: %s", data.EndpointURL))
	}

	if data.RefreshIntervalSec < 1 {
		result.AddError("directory.refresh_interval_sec", "refresh interval must be at least 1 second")
	} else if data.RefreshIntervalSec < 5 {
		result.AddWarning("directory.refresh_interval_sec",
			"refresh interval below 5s puts unnecessary load on the directory")
	}
}

func validateEnrichment(data *EnrichmentConfig, result *ValidationResult) {
	if data.Maps && strings.TrimSpace(data.MapDataURL) == "" {
		result.AddError("enrichment.map_data_url", "map data URL is required when map enrichment is enabled")
	}

	if data.PhysicalTableFile != "" {
		mode := enrich.ParseMergeMode(data.PhysicalMergeMode)
		if mode == enrich.MergeModeUnset {
			result.AddError("enrichment.physical_merge_mode",
				"a merge mode (replace or merge) is required when a physical table file is set")
		}
		if !data.PhysicalMapData {
			result.AddWarning("enrichment.physical_table_file",
				"physical table file is set but physical enrichment is disabled")
		}
	}
}

func validateAPI(data *APIConfig, result *ValidationResult) {
	if data.Enabled {
		validatePort(data.Port, "api.port", result)
	}
}

func validateStorage(data *StorageConfig, result *ValidationResult) {
	if !data.Enabled {
		return
	}
	if strings.TrimSpace(data.Path) == "" {
		result.AddError("storage.path", "database path is required when storage is enabled")
	}
	if data.RetentionSnapshots < 1 {
		result.AddError("storage.retention_snapshots", "retention must keep at least 1 snapshot")
	}
}

func validateMQTT(data *MQTTConfig, result *ValidationResult) {
	if !data.Enabled {
		return
	}
	if strings.TrimSpace(data.BrokerURL) == "" {
		result.AddError("mqtt.broker_url", "MQTT broker URL is required when enabled")
	}
	if data.Port < 1 || data.Port > 65535 {
		result.AddError("mqtt.port", "invalid MQTT port")
	}
	if data.UseTLS && data.CertFile != "" && data.KeyFile == "" {
		result.AddError("mqtt.key_file", "client key file is required when a cert file is set")
	}
}

func validateSecurity(data *SecurityConfig, result *ValidationResult) {
	if data.TLSEnabled {
		if strings.TrimSpace(data.TLSCertFile) == "" {
			result.AddError("security.tls_cert_file",
				"TLS certificate file is required when TLS is enabled")
		}
		if strings.TrimSpace(data.TLSKeyFile) == "" {
			result.AddError("security.tls_key_file",
				"TLS key file is required when TLS is enabled")
		}
	}

	if data.RateLimitRPS < 1 {
		result.AddWarning("security.rate_limit_rps",
			"rate limit is disabled (0 RPS), this may expose the API to abuse")
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
