package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database types.
const (
	DatabaseTypeMySQL      = "mysql"
	DatabaseTypePostgreSQL = "postgresql"
	DatabaseTypeMSSQL      = "mssql"
	DatabaseTypeOracle     = "oracle"
	DatabaseTypeSQLite     = "sqlite"
)

// DefaultBatchSize is used when migration.batch_size is not set.
const DefaultBatchSize = 1000

// ConnectionSpec describes one side of a transfer: an engine, a database
// and the single table the run is bound to.
type ConnectionSpec struct {
	DBType   string `yaml:"db_type"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Table    string `yaml:"table"`
}

// Options controls how rows are moved.
type Options struct {
	BatchSize            int   `yaml:"batch_size"`
	CreateTableIfMissing *bool `yaml:"create_table_if_missing"`
	TruncateDestination  bool  `yaml:"truncate_destination"`
	ShowProgress         *bool `yaml:"show_progress"`
	LogQueries           bool  `yaml:"log_queries"`
}

// CreateTable reports whether the destination table should be created when
// missing. Defaults to true.
func (o Options) CreateTable() bool {
	return o.CreateTableIfMissing == nil || *o.CreateTableIfMissing
}

// Progress reports whether a progress bar should be rendered. Defaults to true.
func (o Options) Progress() bool {
	return o.ShowProgress == nil || *o.ShowProgress
}

// Config is the top-level structure decoded from config.yaml.
type Config struct {
	Source      ConnectionSpec `yaml:"source"`
	Destination ConnectionSpec `yaml:"destination"`
	Migration   Options        `yaml:"migration"`
}

// Load reads and decodes the YAML configuration file, applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Migration.BatchSize == 0 {
		c.Migration.BatchSize = DefaultBatchSize
	}

	c.Source.DBType = strings.ToLower(c.Source.DBType)
	c.Destination.DBType = strings.ToLower(c.Destination.DBType)

	applyPortDefault(&c.Source)
	applyPortDefault(&c.Destination)
}

func applyPortDefault(spec *ConnectionSpec) {
	if spec.Port != 0 {
		return
	}
	switch spec.DBType {
	case DatabaseTypeMySQL:
		spec.Port = 3306
	case DatabaseTypePostgreSQL:
		spec.Port = 5432
	case DatabaseTypeMSSQL:
		spec.Port = 1433
	case DatabaseTypeOracle:
		spec.Port = 1521
	}
}

// loadFromEnv lets credentials be supplied outside the config file so that
// passwords do not have to live in version-controlled YAML.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("SOURCE_USERNAME"); val != "" {
		c.Source.Username = val
	}
	if val := os.Getenv("SOURCE_PASSWORD"); val != "" {
		c.Source.Password = val
	}
	if val := os.Getenv("DEST_USERNAME"); val != "" {
		c.Destination.Username = val
	}
	if val := os.Getenv("DEST_PASSWORD"); val != "" {
		c.Destination.Password = val
	}
}

// Validate ensures both connection specs and the migration options are usable.
func (c *Config) Validate() error {
	if err := validateSpec("source", &c.Source); err != nil {
		return err
	}
	if err := validateSpec("destination", &c.Destination); err != nil {
		return err
	}
	if c.Migration.BatchSize <= 0 {
		return fmt.Errorf("migration: batch_size must be a positive integer, got %d", c.Migration.BatchSize)
	}
	return nil
}

func validateSpec(side string, spec *ConnectionSpec) error {
	if spec.DBType == "" {
		return fmt.Errorf("%s: db_type is required", side)
	}
	if spec.Table == "" {
		return fmt.Errorf("%s: table is required", side)
	}

	switch spec.DBType {
	case DatabaseTypeSQLite:
		if spec.Database == "" {
			return fmt.Errorf("%s: database (file path) is required for sqlite", side)
		}
	case DatabaseTypeMySQL, DatabaseTypePostgreSQL, DatabaseTypeOracle:
		if spec.Host == "" {
			return fmt.Errorf("%s: host is required for %s", side, spec.DBType)
		}
		if spec.Database == "" {
			return fmt.Errorf("%s: database is required for %s", side, spec.DBType)
		}
		if spec.Username == "" {
			return fmt.Errorf("%s: username is required for %s", side, spec.DBType)
		}
	case DatabaseTypeMSSQL:
		// Empty credentials are allowed for trusted (Windows) authentication.
		if spec.Host == "" {
			return fmt.Errorf("%s: host is required for %s", side, spec.DBType)
		}
		if spec.Database == "" {
			return fmt.Errorf("%s: database is required for %s", side, spec.DBType)
		}
	default:
		return fmt.Errorf("%s: unsupported db_type '%s' (supported: mysql, postgresql, mssql, oracle, sqlite)", side, spec.DBType)
	}

	return nil
}
