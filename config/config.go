package config

import (
	"fmt"
	"time"

	"github.com/kbukum/xform/security"
	"github.com/kbukum/xform/validation"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultBatchSize  = 10240
	DefaultDataDir    = "."
	DefaultServerAddr = ":8080"
	DefaultEndpoint   = "localhost:4318"
	// DefaultMaxConcurrent bounds pipeline runs served at once by the API.
	DefaultMaxConcurrent = 8
)

// Config is the complete xform configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Engine        EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Server        ServerConfig  `yaml:"server" mapstructure:"server"`
	Tracing       TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// EngineConfig controls how pipelines read and run.
type EngineConfig struct {
	// BatchSize is the number of rows requested per Next call.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"min=1,max=1048576"`
	// DataDir is the root of the Table/ and Query/ folders.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
	// SQLitePath optionally attaches a SQLite database as a table source.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	// DefaultTable is prepended as 'read <table>' to scripts that do not start with read.
	DefaultTable string `yaml:"default_table" mapstructure:"default_table"`
	// RowLimit caps rows returned by the query API; 0 means unlimited.
	RowLimit int `yaml:"row_limit" mapstructure:"row_limit" validate:"min=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// MaxConcurrent caps pipeline runs in flight; MaxWait is how long a
	// request waits for a slot before a 503.
	MaxConcurrent int                `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"min=0"`
	MaxWait       time.Duration      `yaml:"max_wait" mapstructure:"max_wait"`
	TLS           security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// TracingConfig configures OTLP export of traces and metrics.
type TracingConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "xform"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Engine.BatchSize == 0 {
		c.Engine.BatchSize = DefaultBatchSize
	}
	if c.Engine.DataDir == "" {
		c.Engine.DataDir = DefaultDataDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.MaxConcurrent == 0 {
		c.Server.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = DefaultEndpoint
	}
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1
	}
	if c.Tracing.Interval == 0 {
		c.Tracing.Interval = 15 * time.Second
	}
}

// Validate checks the service fields, then the struct tags of each section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name  string
		value any
	}{
		{"engine", &c.Engine},
		{"server", &c.Server},
		{"tracing", &c.Tracing},
	}
	for _, s := range sections {
		if err := validation.Validate(s.value); err != nil {
			return fmt.Errorf("config.%s: %w", s.name, err)
		}
	}
	if err := c.Server.TLS.Validate(); err != nil {
		return fmt.Errorf("config.server.tls: %w", err)
	}
	return nil
}
