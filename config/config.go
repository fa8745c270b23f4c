// Package config loads the two things a caller needs to stand up the
// engine: the declarative SecuritySchema (from a YAML or JSON file) and the
// façade's own runtime knobs (from the environment). Neither the schema
// loader nor the façade config do any SQL work themselves — they exist so
// the outer guard façade (out of scope here, described only as a
// collaborator) has somewhere to get its settings without every caller
// hand-rolling env parsing.
package config

import (
	"os"
	"strconv"
	"strings"
)

// FacadeConfig holds the environment-driven settings of the façade that
// wraps this engine. Priority mirrors the teacher's own config loading:
// environment variables are read once, at startup, with explicit defaults
// for anything unset.
type FacadeConfig struct {
	// LogQueries enables per-call audit logging via audit.Logger.
	LogQueries bool
	// LogPath is where a JSON-lines audit log is written, if LogQueries is
	// set and the caller wires in audit.NewJSONFileLogger.
	LogPath string
	// RaiseOnViolation, when false, tells a caller to treat a rejected
	// query as a reportable-but-non-fatal event instead of an error the
	// caller must propagate.
	RaiseOnViolation bool
}

// Default values applied when the corresponding environment variable is
// unset.
const (
	DefaultLogQueries       = false
	DefaultLogPath          = ""
	DefaultRaiseOnViolation = true
)

// LoadFacadeConfig reads LANGSEC_* environment variables, falling back to
// the package defaults for anything unset.
func LoadFacadeConfig() *FacadeConfig {
	cfg := &FacadeConfig{
		LogQueries:       DefaultLogQueries,
		LogPath:          DefaultLogPath,
		RaiseOnViolation: DefaultRaiseOnViolation,
	}
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides mutates cfg in place, only touching fields whose
// environment variable is actually set (spec ambient-stack convention:
// env vars override defaults, never the other way around).
func applyEnvOverrides(cfg *FacadeConfig) {
	if v := os.Getenv("LANGSEC_LOG_QUERIES"); v != "" {
		cfg.LogQueries = getEnvBool("LANGSEC_LOG_QUERIES")
	}
	if v := os.Getenv("LANGSEC_LOG_PATH"); v != "" {
		cfg.LogPath = strings.TrimSpace(v)
	}
	if v := os.Getenv("LANGSEC_RAISE_ON_VIOLATION"); v != "" {
		cfg.RaiseOnViolation = getEnvBool("LANGSEC_RAISE_ON_VIOLATION")
	}
}

func getEnvBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return v == "1"
	}
	return b
}
