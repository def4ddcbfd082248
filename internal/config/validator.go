package config

import (
	"fmt"
	"strings"

	"github.com/reviewbot/codegraph/internal/errors"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result.
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result.
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether validation failed.
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error renders a human-readable summary of errors and warnings.
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	for _, warn := range vr.Warnings {
		sb.WriteString(fmt.Sprintf("  warning: %s\n", warn))
	}
	return sb.String()
}

// Validate checks the store and scan configuration.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}
	c.validateStore(result)
	c.validateScan(result)
	return result
}

func (c *Config) validateStore(result *ValidationResult) {
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			result.AddError("store.sqlite_path is required for backend sqlite")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			result.AddError("store.postgres_dsn is required for backend postgres")
		}
		if c.Store.PostgresDSN != "" &&
			!strings.HasPrefix(c.Store.PostgresDSN, "postgres://") &&
			!strings.HasPrefix(c.Store.PostgresDSN, "postgresql://") {
			result.AddError("store.postgres_dsn must start with postgres:// or postgresql://")
		}
	default:
		result.AddError("store.backend must be 'sqlite' or 'postgres', got %q", c.Store.Backend)
	}
}

func (c *Config) validateScan(result *ValidationResult) {
	if c.Scan.FullScanThreshold <= 0 {
		result.AddWarning("scan.full_scan_threshold is non-positive, will use default (100)")
	}
}

// ValidateOrFatal validates configuration and returns an error usable as a
// fatal condition by the CLI's PersistentPreRun.
func (c *Config) ValidateOrFatal() error {
	result := c.Validate()
	if result.HasErrors() {
		return errors.ConfigError(result.Error())
	}
	return nil
}
