package config

import (
	"fmt"
	"strings"

	"github.com/breeze-rmm/registry-inspector/internal/report"
	"github.com/breeze-rmm/registry-inspector/internal/store"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLogFormats = map[string]bool{
	"console": true,
	"text":    true,
	"json":    true,
}

var validStores = map[store.Kind]bool{
	store.KindAuto:     true,
	store.KindRegistry: true,
	store.KindFile:     true,
}

// ValidationResult separates errors that must stop the run from values that
// were corrected in place.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether the config is unusable.
func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config. Out-of-range audit limits are clamped and
// reported as warnings; everything else is fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var errs []error
	var warnings []error

	if _, err := report.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}

	if !validStores[store.Kind(strings.ToLower(c.Store))] {
		errs = append(errs, fmt.Errorf("store %q must be auto, registry or file", c.Store))
	}
	if strings.EqualFold(c.Store, string(store.KindFile)) && strings.TrimSpace(c.StoreFile) == "" {
		errs = append(errs, fmt.Errorf("store_file is required when store is file"))
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "" && !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Errorf("log_format %q is not one of console, json", c.LogFormat))
	}

	if c.AuditMaxSizeMB < 1 {
		warnings = append(warnings, fmt.Errorf("audit_max_size_mb %d is below minimum 1, clamping", c.AuditMaxSizeMB))
		c.AuditMaxSizeMB = 1
	} else if c.AuditMaxSizeMB > 1024 {
		warnings = append(warnings, fmt.Errorf("audit_max_size_mb %d exceeds maximum 1024, clamping", c.AuditMaxSizeMB))
		c.AuditMaxSizeMB = 1024
	}
	if c.AuditMaxBackups < 0 {
		warnings = append(warnings, fmt.Errorf("audit_max_backups %d is negative, clamping", c.AuditMaxBackups))
		c.AuditMaxBackups = 0
	}

	if strings.TrimSpace(c.Check.Location) == "" {
		errs = append(errs, fmt.Errorf("check.location must not be empty"))
	}

	return ValidationResult{Fatals: errs, Warnings: warnings}
}
