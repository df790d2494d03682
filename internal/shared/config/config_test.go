package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"ENV", "PORT", "OBJECT_STORE", "MAX_UPLOAD_MB", "STORE_TIMEOUT", "PUBLIC_BASE_URL", "OBJECT_PREFIX"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MB limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.StoreTimeout != 15*time.Second {
		t.Fatalf("expected 15s store timeout, got %s", cfg.StoreTimeout)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected public base %q", cfg.PublicBaseURL)
	}
	if cfg.ObjectPrefix != "images" {
		t.Fatalf("unexpected prefix %q", cfg.ObjectPrefix)
	}
}

func TestLoadReadsEnvFileWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := "OBJECT_STORE=minio\nMINIO_BUCKET=from-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("OBJECT_STORE", "s3")
	t.Setenv("MINIO_BUCKET", "")
	os.Unsetenv("MINIO_BUCKET")

	cfg := Load()
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected process env to win, got %q", cfg.ObjectStoreType)
	}
	if cfg.MinioBucket != "from-file" {
		t.Fatalf("expected bucket from .env, got %q", cfg.MinioBucket)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("STORE_TIMEOUT", "-1s")

	cfg := Load()
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected default upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.StoreTimeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.StoreTimeout)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
