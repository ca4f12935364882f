// Package config provides configuration types for the pdpd XACML Policy
// Decision Point server.
//
// Configuration is layered YAML plus environment variable overrides
// (viper for reads, go-playground/validator for struct-tag validation).
// It intentionally excludes anything resembling dynamic policy
// recompilation or remote policy retrieval: policy directories are read
// once at startup and the PDP never reaches back out to them afterward.
package config

import (
	"github.com/spf13/viper"
)

// PDPConfig is the top-level configuration for the pdpd server.
type PDPConfig struct {
	// Server configures the HTTP façade listener (GET /getDecision,
	// /health, /metrics, and the admin introspection routes).
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Policy configures where Policy/PolicySet documents are loaded from
	// and how the PDP orchestrator combines its top-level roots.
	Policy PolicyConfig `yaml:"policy" mapstructure:"policy"`

	// Audit configures where signed audit records are written.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// AuditFile configures the file-based audit persistence. Only used
	// when Audit.Output starts with "file://".
	AuditFile AuditFileConfig `yaml:"audit_file" mapstructure:"audit_file"`

	// Bloom configures the optional Bloom-filter policy pre-selector.
	Bloom BloomConfig `yaml:"bloom" mapstructure:"bloom"`

	// Admin configures authentication for the /admin/ introspection routes.
	Admin AdminConfig `yaml:"admin" mapstructure:"admin"`

	// MCP configures the stdio Model Context Protocol tool façade, the
	// non-HTTP counterpart to Server for callers that speak MCP
	// "tools/call" rather than GET /getDecision.
	MCP MCPConfig `yaml:"mcp" mapstructure:"mcp"`

	// DevMode enables permissive defaults and verbose logging for local
	// policy-authoring workflows.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP façade.
type ServerConfig struct {
	// HTTPAddr is the address the façade listens on. Defaults to
	// "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum slog level: "debug", "info", "warn", "error".
	// Defaults to "info". DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// AllowedOrigins lists CORS origins permitted to call /getDecision and
	// the admin routes from a browser-based policy-authoring UI. Empty
	// means same-origin only (no CORS headers are sent).
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// Tracing enables an OpenTelemetry stdout trace exporter for
	// PDP.Evaluate spans. Off by default: the core evaluator itself never
	// depends on this.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`

	// Metrics enables an OpenTelemetry stdout metric exporter alongside
	// the always-on Prometheus /metrics endpoint, for local debugging of
	// the RED (rate/errors/duration) counters.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// PolicyConfig configures Policy/PolicySet loading.
type PolicyConfig struct {
	// Dirs are directories scanned (non-recursively) at startup for
	// "*.xml" Policy/PolicySet documents. Every configured directory is
	// loaded before the PDP becomes ready; a parse error in any file
	// aborts startup so the PDP never starts in a half-loaded state.
	Dirs []string `yaml:"dirs" mapstructure:"dirs" validate:"omitempty,dive,required"`

	// RootCombiningAlgorithm is the combining-algorithm URI applied to
	// the top-level set of loaded Policy/PolicySet roots. Defaults to
	// "urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:deny-overrides".
	RootCombiningAlgorithm string `yaml:"root_combining_algorithm" mapstructure:"root_combining_algorithm"`

	// DefaultTimezoneOffsetMinutes is the offset (in minutes from UTC)
	// used to interpret date and time values, from a policy or a Request,
	// that carry no timezone designator. It never applies to dateTime
	// values: a dateTime literal without a designator fails with a syntax
	// error.
	DefaultTimezoneOffsetMinutes int `yaml:"default_timezone_offset_minutes" mapstructure:"default_timezone_offset_minutes"`
}

// AuditConfig configures audit log output.
type AuditConfig struct {
	// Output specifies where audit logs are written.
	// Valid values: "stdout" or "file:///absolute/path/to/audit"
	// (a directory; the file store manages daily rotation within it).
	// Defaults to "stdout" if empty.
	Output string `yaml:"output" mapstructure:"output" validate:"required,audit_output"`

	// ChannelSize is the buffer size for the audit channel.
	ChannelSize int `yaml:"channel_size" mapstructure:"channel_size" validate:"omitempty,min=1"`

	// BatchSize is the number of records to batch before writing.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"omitempty,min=1"`

	// FlushInterval is how often to flush pending records (e.g., "1s").
	FlushInterval string `yaml:"flush_interval" mapstructure:"flush_interval" validate:"omitempty"`

	// SendTimeout is how long to block when the channel is full.
	SendTimeout string `yaml:"send_timeout" mapstructure:"send_timeout" validate:"omitempty"`

	// WarningThreshold is the percentage (0-100) at which to log warnings.
	WarningThreshold int `yaml:"warning_threshold" mapstructure:"warning_threshold" validate:"omitempty,min=0,max=100"`

	// BufferSize is the number of recent audit records kept in memory for
	// the admin introspection API.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"omitempty,min=1"`

	// Sign enables detached-JWS (ES256) signing of every audit record
	// before it reaches the configured sink.
	Sign bool `yaml:"sign" mapstructure:"sign"`

	// SigningKeyFile is the path to a PEM-encoded ECDSA P-256 private key
	// used to produce the detached JWS. Required when Sign is true.
	SigningKeyFile string `yaml:"signing_key_file" mapstructure:"signing_key_file" validate:"required_if=Sign true"`

	// Backend selects the durable sink AuditFile/AuditFileConfig feeds:
	// "file" (the default, JSONL-on-disk) or "sqlite" (a single
	// database file, queryable with SQL-shaped filters). "stdout" output
	// ignores Backend entirely.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=file sqlite"`

	// SQLitePath is the database file path used when Backend is "sqlite".
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AuditFileConfig configures the file-based audit persistence.
type AuditFileConfig struct {
	// Dir is the directory where audit files are stored. When empty, the
	// path of a "file://" Audit.Output is used.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// RetentionDays is the number of days to keep audit files. Defaults to 7.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
	// MaxFileSizeMB is the maximum size per audit file before rotation. Defaults to 100.
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	// CacheSize is the number of recent audit records to keep in memory. Defaults to 1000.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
	// Lock enables a cross-process flock on Dir so two pdpd processes
	// never interleave writes to the same audit file.
	Lock bool `yaml:"lock" mapstructure:"lock"`
}

// BloomConfig configures the optional Bloom-filter policy pre-selector.
type BloomConfig struct {
	// Enabled turns the pre-selector on. Off by default: it is a pure
	// optimization that must never influence decisions on its own, so it
	// is safe but not required.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// BitsPerEntry is validated and defaults to 10, but the pre-selector
	// does not read it: every bloom.Index uses the same fixed-size bitset.
	BitsPerEntry int `yaml:"bits_per_entry" mapstructure:"bits_per_entry" validate:"omitempty,min=1"`
}

// AdminConfig configures authentication for the /admin/ routes.
type AdminConfig struct {
	// Enabled turns on bearer-token authentication for /admin/. Off by
	// default for local policy-authoring workflows; operators exposing
	// the admin surface beyond localhost must set this.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// APIKeyHash is the Argon2id hash (as produced by `pdpd hash-admin-key`)
	// of the bearer token admin callers must present. Required when
	// Enabled is true.
	APIKeyHash string `yaml:"api_key_hash" mapstructure:"api_key_hash" validate:"required_if=Enabled true"`
}

// MCPConfig configures the stdio MCP tool façade.
type MCPConfig struct {
	// Enabled starts the "xacml_evaluate" tools/call listener on stdin/
	// stdout alongside the HTTP façade. Off by default: most deployments
	// only need one inbound transport, and a stdio listener attached to a
	// long-running server process is an unusual combination outside of
	// local tool-harness testing.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDevDefaults applies permissive defaults for development mode, before
// validation, so a bare-minimum config (or none at all) can still boot.
func (c *PDPConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Audit.Output == "" {
		c.Audit.Output = "stdout"
	}
	if len(c.Policy.Dirs) == 0 {
		c.Policy.Dirs = []string{"./policies"}
	}
}

// SetDefaults applies sensible default values to the configuration.
func (c *PDPConfig) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Policy.RootCombiningAlgorithm == "" {
		c.Policy.RootCombiningAlgorithm = "urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:deny-overrides"
	}

	if c.Audit.Output == "" {
		c.Audit.Output = "stdout"
	}
	if c.Audit.ChannelSize == 0 {
		c.Audit.ChannelSize = 1000
	}
	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = 100
	}
	if c.Audit.FlushInterval == "" {
		c.Audit.FlushInterval = "1s"
	}
	if c.Audit.SendTimeout == "" {
		c.Audit.SendTimeout = "100ms"
	}
	if c.Audit.WarningThreshold == 0 {
		c.Audit.WarningThreshold = 80
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 1000
	}

	if c.AuditFile.RetentionDays == 0 {
		c.AuditFile.RetentionDays = 7
	}
	if c.AuditFile.MaxFileSizeMB == 0 {
		c.AuditFile.MaxFileSizeMB = 100
	}
	if c.AuditFile.CacheSize == 0 {
		c.AuditFile.CacheSize = 1000
	}

	if c.Bloom.BitsPerEntry == 0 {
		c.Bloom.BitsPerEntry = 10
	}

	if c.Audit.Backend == "" {
		c.Audit.Backend = "file"
	}
	if c.Audit.Backend == "sqlite" && c.Audit.SQLitePath == "" {
		c.Audit.SQLitePath = "./audit.db"
	}

	// viper.IsSet distinguishes "not set" from "explicitly false".
	if !viper.IsSet("bloom.enabled") {
		// Off by default: treats it as opt-in optimization.
		c.Bloom.Enabled = false
	}
}
