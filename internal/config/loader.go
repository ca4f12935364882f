// Package config provides configuration loading for the pdpd PDP server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for pdpd.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("pdpd")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: PDPD_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("PDPD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a pdpd config file
// with an explicit YAML extension (.yaml or .yml). This prevents Viper from
// matching the binary "pdpd" (no extension) in the current directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".pdpd"),
	}
	if runtime.GOOS == "windows" {
		// %ProgramData%\pdpd (typically C:\ProgramData\pdpd)
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "pdpd"))
		}
	} else {
		paths = append(paths, "/etc/pdpd")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for pdpd.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "pdpd"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all pdpd config keys for environment variable support.
// This enables overriding nested config values via environment variables.
// Example: PDPD_SERVER_HTTP_ADDR overrides server.http_addr
func bindNestedEnvKeys() {
	// Server config
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.tracing")
	_ = viper.BindEnv("server.metrics")
	// Note: server.allowed_origins is an array, handled by Viper's env parsing

	// Policy config
	// Note: policy.dirs is an array, complex to override via env;
	// users should use a config file for policy directories.
	_ = viper.BindEnv("policy.root_combining_algorithm")
	_ = viper.BindEnv("policy.default_timezone_offset_minutes")

	// Audit config
	_ = viper.BindEnv("audit.output")
	_ = viper.BindEnv("audit.channel_size")
	_ = viper.BindEnv("audit.batch_size")
	_ = viper.BindEnv("audit.flush_interval")
	_ = viper.BindEnv("audit.send_timeout")
	_ = viper.BindEnv("audit.warning_threshold")
	_ = viper.BindEnv("audit.buffer_size")
	_ = viper.BindEnv("audit.sign")
	_ = viper.BindEnv("audit.signing_key_file")
	_ = viper.BindEnv("audit.backend")
	_ = viper.BindEnv("audit.sqlite_path")

	_ = viper.BindEnv("audit_file.dir")
	_ = viper.BindEnv("audit_file.retention_days")
	_ = viper.BindEnv("audit_file.max_file_size_mb")
	_ = viper.BindEnv("audit_file.cache_size")
	_ = viper.BindEnv("audit_file.lock")

	// Bloom pre-selector config
	_ = viper.BindEnv("bloom.enabled")
	_ = viper.BindEnv("bloom.bits_per_entry")

	// Admin auth config
	_ = viper.BindEnv("admin.enabled")
	_ = viper.BindEnv("admin.api_key_hash")

	// Dev mode
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the PDPConfig.
// Note: Caller should apply any CLI flag overrides (e.g. --dev), then call
// cfg.SetDevDefaults() and cfg.Validate() to complete initialization.
func LoadConfig() (*PDPConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only
		// This allows running with pure environment variable configuration
	}

	var cfg PDPConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply default values for optional fields
	cfg.SetDefaults()

	// In dev mode, apply permissive defaults before validation
	cfg.SetDevDefaults()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT apply dev defaults or validate.
// Use this when CLI flags may override DevMode before validation.
func LoadConfigRaw() (*PDPConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg PDPConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
