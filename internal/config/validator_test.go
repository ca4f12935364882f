package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a minimal valid PDPConfig for testing.
func minimalValidConfig() *PDPConfig {
	return &PDPConfig{
		Policy: PolicyConfig{Dirs: []string{"./policies"}},
		Audit:  AuditConfig{Output: "stdout"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_NoPolicyDirs(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Policy.Dirs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for empty policy.dirs, got nil")
	}
	if !strings.Contains(err.Error(), "policy.dirs") {
		t.Errorf("error = %q, want to contain 'policy.dirs'", err.Error())
	}
}

func TestValidate_DuplicatePolicyDirs(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Policy.Dirs = []string{"./policies", "./policies"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for duplicate policy dirs, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %q, want to contain 'duplicate'", err.Error())
	}
}

func TestValidate_InvalidAuditOutput(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.Output = "invalid"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "Audit.Output") {
		t.Errorf("error = %q, want to contain 'Audit.Output'", errStr)
	}
}

func TestValidate_ValidAuditOutputStdout(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.Output = "stdout"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with stdout unexpected error: %v", err)
	}
}

func TestValidate_ValidAuditOutputFile(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.Output = "file:///var/log/audit"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with file:// unexpected error: %v", err)
	}
}

func TestValidate_InvalidAuditOutputRelativePath(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.Output = "file://relative/path"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for relative path, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "Audit.Output") {
		t.Errorf("error = %q, want to contain 'Audit.Output'", errStr)
	}
}

func TestValidate_ZeroConfig(t *testing.T) {
	t.Parallel()

	// Simulate a user running "pdpd start" with no config file at all, but
	// with dev mode on so SetDevDefaults can supply a policy directory.
	cfg := &PDPConfig{DevMode: true}
	cfg.SetDevDefaults()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() zero-config (dev mode) unexpected error: %v", err)
	}
	if cfg.Audit.Output != "stdout" {
		t.Errorf("default audit output = %q, want 'stdout'", cfg.Audit.Output)
	}
}

func TestValidate_SigningRequiresKeyFile(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.Sign = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error when audit.sign is true without a signing key file")
	}
}

func TestValidate_SigningWithKeyFile(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.Sign = true
	cfg.Audit.SigningKeyFile = "/etc/pdpd/audit-signing.pem"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with signing key file unexpected error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Server.LogLevel = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid log level, got nil")
	}
}
