package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"STORAGE_BACKEND", "AUDIT_BACKEND", "AI_PROVIDER", "MAX_PATIENT_DATA_LENGTH",
		"BACKEND_TIMEOUT", "SWEEP_INTERVAL", "ALLOWED_ORIGINS", "NATS_SWEEP_SUBJECT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.StorageBackend != StorageBackendLocal {
		t.Fatalf("expected local storage by default, got %q", cfg.StorageBackend)
	}
	if cfg.AuditBackend != AuditBackendLocal {
		t.Fatalf("expected local audit by default, got %q", cfg.AuditBackend)
	}
	if cfg.AIProvider != AIProviderFallback {
		t.Fatalf("expected fallback AI provider by default, got %q", cfg.AIProvider)
	}
	if cfg.MaxPatientDataLength != 10000 {
		t.Fatalf("expected max patient data length 10000, got %d", cfg.MaxPatientDataLength)
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Fatalf("expected backend timeout 5s, got %s", cfg.BackendTimeout)
	}
	if cfg.SweepInterval != time.Hour {
		t.Fatalf("expected sweep interval 1h, got %s", cfg.SweepInterval)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
	if cfg.NATSSweepSubject != "storage.sweep" {
		t.Fatalf("unexpected sweep subject %q", cfg.NATSSweepSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("BACKEND_TIMEOUT", "750ms")
	t.Setenv("SWEEP_INTERVAL", "120")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MAX_PATIENT_DATA_LENGTH", "500")

	cfg := Load()
	if cfg.StorageBackend != StorageBackendMinio {
		t.Fatalf("expected minio backend, got %q", cfg.StorageBackend)
	}
	if cfg.AIProvider != AIProviderOpenAI {
		t.Fatalf("expected openai provider, got %q", cfg.AIProvider)
	}
	if cfg.BackendTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %s", cfg.BackendTimeout)
	}
	if cfg.SweepInterval != 2*time.Minute {
		t.Fatalf("bare seconds should parse, got %s", cfg.SweepInterval)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
	if !cfg.MinioUseSSL || cfg.MaxPatientDataLength != 500 {
		t.Fatalf("unexpected overrides: ssl=%v max=%d", cfg.MinioUseSSL, cfg.MaxPatientDataLength)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("MAX_PATIENT_DATA_LENGTH", "lots")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := Load()
	if cfg.BackendTimeout != 5*time.Second || cfg.MaxPatientDataLength != 10000 || cfg.MinioUseSSL {
		t.Fatalf("malformed values should fall back to defaults: %+v", cfg)
	}
}
