// Package config loads the TOML configuration file shared by every
// spendscope binary.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration tree.
type Config struct {
	// DataDir holds the raw platform export files.
	DataDir string `toml:"data_dir"`
	// OutputDir receives the processed ledger and tagging batches.
	OutputDir string `toml:"output_dir"`
	// DefaultUser is assigned when file metadata identifies nobody.
	DefaultUser string `toml:"default_user"`

	Users []UserProfile `toml:"users"`

	Tracks   TracksConfig   `toml:"tracks"`
	Tagging  TaggingConfig  `toml:"tagging"`
	BigQuery BigQueryConfig `toml:"bigquery"`
	GCS      GCSConfig      `toml:"gcs"`
	Notion   NotionConfig   `toml:"notion"`
	API      APIConfig      `toml:"api"`
}

// UserProfile maps statement-file metadata to a user ID.
type UserProfile struct {
	ID            string   `toml:"id"`
	DisplayName   string   `toml:"display_name"`
	Aliases       []string `toml:"aliases"`
	AlipayAccount string   `toml:"alipay_account"`
}

// TracksConfig extends the built-in cashflow tag sets. New red-packet and
// wallet-product variants appear in exports faster than releases ship.
type TracksConfig struct {
	AlipayCashflowCategories []string `toml:"alipay_cashflow_categories"`
	WeChatCashflowTxTypes    []string `toml:"wechat_cashflow_tx_types"`
}

// TaggingConfig controls the LLM tagging stage.
type TaggingConfig struct {
	Model     string `toml:"model"`
	BatchSize int    `toml:"batch_size"`
	Workers   int    `toml:"workers"`
}

// BigQueryConfig points at the processed-ledger dataset. Disabled means the
// pipeline only writes the local CSV.
type BigQueryConfig struct {
	Enabled bool   `toml:"enabled"`
	Project string `toml:"project"`
	Dataset string `toml:"dataset"`
}

// GCSConfig names the bucket raw exports are fetched from when statement
// files are referenced by gs:// URI.
type GCSConfig struct {
	Bucket string `toml:"bucket"`
}

// NotionConfig points at the Notion database the consumption view is
// exported to. Disabled by default.
type NotionConfig struct {
	Enabled    bool   `toml:"enabled"`
	DatabaseID string `toml:"database_id"`
}

// APIConfig configures the reporting server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		DataDir:     "data",
		OutputDir:   "output",
		DefaultUser: "primary",
		Tagging: TaggingConfig{
			Model:     "gemini-2.5-flash",
			BatchSize: 20,
			Workers:   5,
		},
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    5001,
			Metrics: true,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; the
// defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if cfg.Tagging.BatchSize <= 0 {
		return cfg, fmt.Errorf("config: tagging.batch_size must be positive")
	}
	if cfg.Tagging.Workers <= 0 {
		return cfg, fmt.Errorf("config: tagging.workers must be positive")
	}
	return cfg, nil
}
