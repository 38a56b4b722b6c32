package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	tmp := t.TempDir()

	envPath := filepath.Join(tmp, ".env.local")
	if err := os.WriteFile(envPath, []byte("ARBOR_TEST_ENV_LOAD=ok\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", envPath, err)
	}
	_ = os.Unsetenv("ARBOR_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{filepath.Join(tmp, ".env"), envPath})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("ARBOR_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded, got %q", got)
	}
}

func TestLoadEnv_NoFiles(t *testing.T) {
	n, err := LoadEnv([]string{filepath.Join(t.TempDir(), ".env")})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 env files loaded, got %d", n)
	}
}

func TestRateLimitOptionsValidate(t *testing.T) {
	valid := RateLimitOptions{Enabled: true, GlobalRPS: 100, Storage: "memory"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	negative := RateLimitOptions{GlobalRPS: -1, Storage: "memory"}
	if err := negative.Validate(); err == nil {
		t.Fatal("expected error for negative GlobalRPS")
	}

	badStorage := RateLimitOptions{GlobalRPS: 1, Storage: "dynamo"}
	if err := badStorage.Validate(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}

	redisNoURL := RateLimitOptions{GlobalRPS: 1, Storage: "redis"}
	if err := redisNoURL.Validate(); err == nil {
		t.Fatal("expected error for redis storage without URL")
	}
}

func TestImportOptionsValidate(t *testing.T) {
	valid := ImportOptions{BatchSize: 50, Concurrency: 8, StatusStore: "memory"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	zeroBatch := ImportOptions{BatchSize: 0, Concurrency: 8, StatusStore: "memory"}
	if err := zeroBatch.Validate(); err == nil {
		t.Fatal("expected error for zero BatchSize")
	}

	zeroConcurrency := ImportOptions{BatchSize: 50, Concurrency: 0, StatusStore: "memory"}
	if err := zeroConcurrency.Validate(); err == nil {
		t.Fatal("expected error for zero Concurrency")
	}

	badStore := ImportOptions{BatchSize: 50, Concurrency: 8, StatusStore: "s3"}
	if err := badStore.Validate(); err == nil {
		t.Fatal("expected error for unknown status store")
	}
}
