package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TableFiles names the input CSV files inside DataDir. Empty entries fall
// back to the standard Olist dataset file names.
type TableFiles struct {
	Orders      string `yaml:"orders"`
	OrderItems  string `yaml:"order_items"`
	Customers   string `yaml:"customers"`
	Sellers     string `yaml:"sellers"`
	Geolocation string `yaml:"geolocation"`
	Products    string `yaml:"products"`
	Reviews     string `yaml:"reviews"`
}

// Output configures the export targets. CSV is always written; XLSX and
// SQLite are additional targets when set.
type Output struct {
	CSV    string `yaml:"csv"`
	XLSX   string `yaml:"xlsx"`
	SQLite bool   `yaml:"sqlite"`
}

// Config is the full run configuration. Paths and worker counts live here
// rather than in package-level constants; the whole value is handed to the
// pipeline entry point.
type Config struct {
	DataDir    string     `yaml:"data_dir"`
	Files      TableFiles `yaml:"files"`
	Output     Output     `yaml:"output"`
	TrackingDB string     `yaml:"tracking_db"`
	Workers    int        `yaml:"workers"`
}

var defaultFiles = TableFiles{
	Orders:      "olist_orders_dataset.csv",
	OrderItems:  "olist_order_items_dataset.csv",
	Customers:   "olist_customers_dataset.csv",
	Sellers:     "olist_sellers_dataset.csv",
	Geolocation: "olist_geolocation_dataset.csv",
	Products:    "olist_products_dataset.csv",
	Reviews:     "olist_order_reviews_dataset.csv",
}

// Load reads and validates a YAML config file, applying defaults for
// anything the file leaves out.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./archive"
	}
	setIfEmpty(&c.Files.Orders, defaultFiles.Orders)
	setIfEmpty(&c.Files.OrderItems, defaultFiles.OrderItems)
	setIfEmpty(&c.Files.Customers, defaultFiles.Customers)
	setIfEmpty(&c.Files.Sellers, defaultFiles.Sellers)
	setIfEmpty(&c.Files.Geolocation, defaultFiles.Geolocation)
	setIfEmpty(&c.Files.Products, defaultFiles.Products)
	setIfEmpty(&c.Files.Reviews, defaultFiles.Reviews)
	if c.Output.CSV == "" {
		c.Output.CSV = "olist_otif_dataset.csv"
	}
	if c.TrackingDB == "" {
		c.TrackingDB = "pipeline.db"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

func (c Config) validate() error {
	if c.Output.CSV == "" {
		return fmt.Errorf("config: output.csv must not be empty")
	}
	return nil
}

// TablePath returns the full path of a configured table file.
func (c Config) TablePath(name string) string {
	return filepath.Join(c.DataDir, name)
}

func setIfEmpty(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}
