// Package config loads the settings shared by the iform CLI and the HTTP
// service from a YAML file. Every field has a default, so an empty or
// missing file is a valid configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/schema"
)

// Defaults applied when a setting is left out.
const (
	DefaultFormsDir     = "forms"
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultViewport     = 800
)

// Drivers the bridge section may name.
var Drivers = []string{"sqlite", "postgres", "memory"}

// Config is the root document.
type Config struct {
	Forms    FormsConfig  `yaml:"forms"`
	Bridge   BridgeConfig `yaml:"bridge"`
	Theme    ThemeConfig  `yaml:"theme"`
	Server   ServerConfig `yaml:"server"`
	Language string       `yaml:"language"`
	Viewport float64      `yaml:"viewport"`
}

// FormsConfig points at the directory of .iform documents.
type FormsConfig struct {
	Dir string `yaml:"dir"`
}

// BridgeConfig selects the data bridge and the tables it may touch.
type BridgeConfig struct {
	Driver string        `yaml:"driver"`
	DSN    string        `yaml:"dsn"`
	Tables []TableConfig `yaml:"tables"`
}

// TableConfig is one allow-listed table.
type TableConfig struct {
	Name       string   `yaml:"name"`
	PrimaryKey string   `yaml:"primary_key"`
	Columns    []string `yaml:"columns"`
}

// ThemeConfig names the theme variant used for previews.
type ThemeConfig struct {
	Variant string `yaml:"variant"`
}

// ServerConfig tunes the HTTP service.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Option adjusts a Config after it is loaded, typically from CLI flags.
type Option func(*Config)

// WithFormsDir overrides forms.dir.
func WithFormsDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.Forms.Dir = dir
		}
	}
}

// WithBridge overrides the bridge driver and DSN.
func WithBridge(driver, dsn string) Option {
	return func(c *Config) {
		if driver != "" {
			c.Bridge.Driver = driver
		}
		if dsn != "" {
			c.Bridge.DSN = dsn
		}
	}
}

// WithLanguage overrides the display language.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		if lang != "" {
			c.Language = lang
		}
	}
}

// WithAddr overrides server.addr.
func WithAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.Server.Addr = addr
		}
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Load reads path and applies opts. A blank path yields the defaults; a
// missing file is an error.
func Load(path string, opts ...Option) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return finish(Config{}, opts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return finish(c, opts)
}

// Parse decodes a YAML document without applying defaults. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	var c Config
	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return c, nil
}

func finish(c Config, opts []Option) (Config, error) {
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Forms.Dir == "" {
		c.Forms.Dir = DefaultFormsDir
	}
	if c.Bridge.Driver == "" {
		c.Bridge.Driver = "memory"
	}
	if c.Language == "" {
		c.Language = schema.DefaultLanguage
	}
	if c.Viewport <= 0 {
		c.Viewport = DefaultViewport
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	known := false
	for _, d := range Drivers {
		if c.Bridge.Driver == d {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("config: bridge.driver %q is not one of %v", c.Bridge.Driver, Drivers))
	}
	if c.Bridge.Driver != "memory" && c.Bridge.DSN == "" {
		errs = append(errs, fmt.Errorf("config: bridge.dsn is required for driver %q", c.Bridge.Driver))
	}
	if _, err := c.AllowList(); err != nil {
		errs = append(errs, fmt.Errorf("config: bridge.tables: %w", err))
	}
	return errors.Join(errs...)
}

// AllowList builds the bridge allow-list from the configured tables.
func (c Config) AllowList() (*bridge.AllowList, error) {
	tables := make([]bridge.Table, 0, len(c.Bridge.Tables))
	for _, t := range c.Bridge.Tables {
		tables = append(tables, bridge.Table{Name: t.Name, PrimaryKey: t.PrimaryKey, Columns: t.Columns})
	}
	return bridge.NewAllowList(tables...)
}
