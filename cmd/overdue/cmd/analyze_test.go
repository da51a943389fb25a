package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	if err := os.WriteFile(path, []byte("order_id,put_at\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := validateFileExists(path, "orders file"); err != nil {
		t.Errorf("existing file rejected: %v", err)
	}
	if err := validateFileExists("", "orders file"); err == nil {
		t.Error("empty path accepted")
	}
	if err := validateFileExists(filepath.Join(dir, "missing.csv"), "orders file"); err == nil {
		t.Error("missing file accepted")
	}
	if err := validateFileExists(dir, "orders file"); err == nil {
		t.Error("directory accepted as a file")
	}
}

func TestSetVersionInfo(t *testing.T) {
	defer SetVersionInfo("dev", "unknown", "unknown")

	SetVersionInfo("1.2.3", "abc123", "2022-12-08")
	if rootCmd.Version != "1.2.3" {
		t.Errorf("expected release version string, got %q", rootCmd.Version)
	}

	SetVersionInfo("dev", "abc123", "2022-12-08")
	if rootCmd.Version != "dev (commit abc123, built 2022-12-08)" {
		t.Errorf("expected dev version string, got %q", rootCmd.Version)
	}
}
