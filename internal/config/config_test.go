package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected 10s shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.ReadHeaderTimeout != 10*time.Second || cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Expected 10s/30s header/write timeouts, got %v/%v", cfg.Server.ReadHeaderTimeout, cfg.Server.WriteTimeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := "server:\n  port: 9090\ndatabase:\n  driver: sqlite\n  dbname: onboard.db\nauth:\n  api_key: from-file\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ONBOARD_API_KEY", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Auth.APIKey != "from-env" {
		t.Errorf("Expected env override, got %s", cfg.Auth.APIKey)
	}
	if got := cfg.Database.DSN(); got != "file:onboard.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Errorf("unexpected sqlite dsn %s", got)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for unsupported driver")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
