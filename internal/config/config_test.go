package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("WEBHOOK_SIGNING_SECRET", "whsec_dGVzdHNlY3JldHRlc3RzZWNyZXQ=")
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "cineverse_test")
	os.Setenv("CLERK_SECRET_KEY", "sk_test_123")
	defer os.Unsetenv("WEBHOOK_SIGNING_SECRET")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Webhook.SigningSecret == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.Clerk.APIURL == "" {
		t.Fatalf("expected default Clerk API URL, got empty")
	}
	if cfg.Webhook.Tolerance <= 0 {
		t.Fatalf("expected positive webhook tolerance, got %v", cfg.Webhook.Tolerance)
	}
}

func TestLoadConfigMissingSigningSecret(t *testing.T) {
	os.Unsetenv("WEBHOOK_SIGNING_SECRET")
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when WEBHOOK_SIGNING_SECRET is missing")
	}
}
