package config

import (
	"os"
	"testing"
)

func clearEnv() {
	for _, v := range []string{"LANGSEC_LOG_QUERIES", "LANGSEC_LOG_PATH", "LANGSEC_RAISE_ON_VIOLATION"} {
		os.Unsetenv(v)
	}
}

func TestLoadFacadeConfigDefaults(t *testing.T) {
	clearEnv()
	defer clearEnv()

	cfg := LoadFacadeConfig()
	if cfg.LogQueries != DefaultLogQueries {
		t.Errorf("LogQueries = %v, want default %v", cfg.LogQueries, DefaultLogQueries)
	}
	if cfg.LogPath != DefaultLogPath {
		t.Errorf("LogPath = %q, want default %q", cfg.LogPath, DefaultLogPath)
	}
	if cfg.RaiseOnViolation != DefaultRaiseOnViolation {
		t.Errorf("RaiseOnViolation = %v, want default %v", cfg.RaiseOnViolation, DefaultRaiseOnViolation)
	}
}

func TestLoadFacadeConfigEnvOverrides(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("LANGSEC_LOG_QUERIES", "true")
	os.Setenv("LANGSEC_LOG_PATH", "/var/log/langsec/audit.jsonl")
	os.Setenv("LANGSEC_RAISE_ON_VIOLATION", "false")

	cfg := LoadFacadeConfig()
	if !cfg.LogQueries {
		t.Errorf("LogQueries = false, want true")
	}
	if cfg.LogPath != "/var/log/langsec/audit.jsonl" {
		t.Errorf("LogPath = %q, want the overridden path", cfg.LogPath)
	}
	if cfg.RaiseOnViolation {
		t.Errorf("RaiseOnViolation = true, want false")
	}
}

func TestLoadFacadeConfigIgnoresUnsetOverrides(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("LANGSEC_LOG_QUERIES", "1")
	cfg := LoadFacadeConfig()
	if !cfg.LogQueries {
		t.Errorf("LogQueries = false, want true (set via \"1\")")
	}
	if cfg.RaiseOnViolation != DefaultRaiseOnViolation {
		t.Errorf("RaiseOnViolation changed despite its env var being unset")
	}
}
