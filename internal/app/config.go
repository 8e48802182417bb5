// Package app wires configuration, infrastructure and the bot together.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/chartbot/core/config"
	coredatabase "github.com/m3rciful/chartbot/core/database"
	"github.com/m3rciful/chartbot/core/sentryutil"
	"github.com/m3rciful/chartbot/internal/catalog"
	"github.com/m3rciful/chartbot/internal/chart"
	"github.com/m3rciful/chartbot/internal/sheets"
	"github.com/m3rciful/chartbot/internal/storage"
)

// SheetsConfig points at the spreadsheet whose sheet titles form the catalog.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" envconfig:"SHEET_ID"`
	ClientEmail   string `yaml:"client_email" envconfig:"GOOGLE_CLIENT_EMAIL"`
	PrivateKey    string `yaml:"private_key" envconfig:"GOOGLE_PRIVATE_KEY"`
	// RowsRange is the A1 range read from a company sheet.
	RowsRange string `yaml:"rows_range" envconfig:"SHEET_ROWS_RANGE"`
}

// ChartConfig configures the QuickChart renderer.
type ChartConfig struct {
	Endpoint       string `yaml:"endpoint" envconfig:"QUICKCHART_ENDPOINT"`
	Width          int    `yaml:"width" envconfig:"CHART_WIDTH"`
	Height         int    `yaml:"height" envconfig:"CHART_HEIGHT"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"CHART_TIMEOUT_SECONDS"`
}

// CatalogConfig configures catalog sync.
type CatalogConfig struct {
	SyncIntervalSeconds int `yaml:"sync_interval_seconds" envconfig:"CATALOG_SYNC_INTERVAL_SECONDS"`
	SnapshotRetain      int `yaml:"snapshot_retain" envconfig:"CATALOG_SNAPSHOT_RETAIN"`
}

// SenderConfig tunes the outbound Telegram queue.
type SenderConfig struct {
	Workers    int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	QueueSize  int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	MaxRetries int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
}

// Config is the full application configuration. The core section is inlined
// so telegram, webhook, logging and rate_limit stay top-level YAML keys.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Sheets   SheetsConfig        `yaml:"sheets"`
	Chart    ChartConfig         `yaml:"chart"`
	Catalog  CatalogConfig       `yaml:"catalog"`
	Sender   SenderConfig        `yaml:"sender"`
	Database coredatabase.Config `yaml:"database"`
	Sentry   sentryutil.Config   `yaml:"sentry"`
}

// CoreConfig exposes the reusable core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// SyncInterval returns the catalog poll interval.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Catalog.SyncIntervalSeconds) * time.Second
}

// ChartTimeout bounds one chart render including the image download.
func (c *Config) ChartTimeout() time.Duration {
	return time.Duration(c.Chart.TimeoutSeconds) * time.Second
}

// LoadConfig reads path (optional) and the environment, then validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	// BOT_ID is the token variable of earlier deployments.
	if strings.TrimSpace(cfg.Core.Telegram.Token) == "" {
		cfg.Core.Telegram.Token = os.Getenv("BOT_ID")
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	s := &cfg.Sheets
	s.SpreadsheetID = strings.TrimSpace(s.SpreadsheetID)
	s.ClientEmail = strings.TrimSpace(s.ClientEmail)
	s.PrivateKey = sheets.NormalizePrivateKey(s.PrivateKey)
	switch {
	case s.SpreadsheetID == "":
		return fmt.Errorf("sheets.spreadsheet_id is required")
	case s.ClientEmail == "":
		return fmt.Errorf("sheets.client_email is required")
	case s.PrivateKey == "":
		return fmt.Errorf("sheets.private_key is required")
	}
	if s.RowsRange = strings.TrimSpace(s.RowsRange); s.RowsRange == "" {
		s.RowsRange = sheets.DefaultRange
	}

	ch := &cfg.Chart
	if ch.Endpoint = strings.TrimRight(strings.TrimSpace(ch.Endpoint), "/"); ch.Endpoint == "" {
		ch.Endpoint = chart.DefaultEndpoint
	}
	if ch.Width < 0 || ch.Height < 0 {
		return fmt.Errorf("chart.width and chart.height must be >= 0")
	}
	if ch.Width == 0 {
		ch.Width = chart.DefaultWidth
	}
	if ch.Height == 0 {
		ch.Height = chart.DefaultHeight
	}
	if ch.TimeoutSeconds <= 0 {
		ch.TimeoutSeconds = 30
	}

	if cfg.Catalog.SyncIntervalSeconds < 0 {
		return fmt.Errorf("catalog.sync_interval_seconds must be >= 0")
	}
	if cfg.Catalog.SyncIntervalSeconds == 0 {
		cfg.Catalog.SyncIntervalSeconds = int(catalog.DefaultSyncInterval / time.Second)
	}
	if cfg.Catalog.SnapshotRetain <= 0 {
		cfg.Catalog.SnapshotRetain = storage.DefaultRetain
	}

	if cfg.Sender.MaxRetries < 0 {
		return fmt.Errorf("sender.max_retries must be >= 0")
	}
	if cfg.Sender.MaxRetries == 0 {
		cfg.Sender.MaxRetries = 2
	}
	return nil
}
