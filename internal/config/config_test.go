package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.OutputDir != "output" {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "output")
	}
	if cfg.DefaultUser != "primary" {
		t.Errorf("DefaultUser = %q, want %q", cfg.DefaultUser, "primary")
	}
	if cfg.Tagging.BatchSize != 20 {
		t.Errorf("Tagging.BatchSize = %d, want 20", cfg.Tagging.BatchSize)
	}
	if cfg.Tagging.Workers != 5 {
		t.Errorf("Tagging.Workers = %d, want 5", cfg.Tagging.Workers)
	}
	if cfg.Tagging.Model != "gemini-2.5-flash" {
		t.Errorf("Tagging.Model = %q", cfg.Tagging.Model)
	}
	if cfg.API.Port != 5001 {
		t.Errorf("API.Port = %d, want 5001", cfg.API.Port)
	}
	if cfg.BigQuery.Enabled {
		t.Error("BigQuery should be disabled by default")
	}
	if cfg.Notion.Enabled {
		t.Error("Notion export should be disabled by default")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want defaults", cfg.DataDir)
	}
}

func TestLoadOverlay(t *testing.T) {
	content := `
data_dir = "/srv/exports"
default_user = "parko"

[[users]]
id = "parko"
display_name = "Parko"
aliases = ["Parko", "PARKO"]
alipay_account = "13800000000"

[tracks]
alipay_cashflow_categories = ["亲情卡"]

[tagging]
model = "gemini-2.5-pro"
batch_size = 10
workers = 3

[api]
host = "0.0.0.0"
port = 8080
`
	path := filepath.Join(t.TempDir(), "spendscope.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != "/srv/exports" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.OutputDir != "output" {
		t.Errorf("OutputDir = %q, want default preserved", cfg.OutputDir)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].ID != "parko" {
		t.Errorf("Users = %+v", cfg.Users)
	}
	if len(cfg.Tracks.AlipayCashflowCategories) != 1 {
		t.Errorf("Tracks.AlipayCashflowCategories = %v", cfg.Tracks.AlipayCashflowCategories)
	}
	if cfg.Tagging.BatchSize != 10 || cfg.Tagging.Workers != 3 {
		t.Errorf("Tagging = %+v", cfg.Tagging)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d", cfg.API.Port)
	}
}

func TestLoadRejectsBadBatchSize(t *testing.T) {
	content := "[tagging]\nbatch_size = 0\n"
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject non-positive batch size")
	}
}
