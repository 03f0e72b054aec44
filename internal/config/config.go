// Package config loads the annotator's YAML configuration.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	Meta struct {
		Description string `yaml:"description"`
	} `yaml:"meta"`
	Server struct {
		Addr string `yaml:"addr"`
		// ImagesDir is where ingested street-view images live; the asset
		// endpoint serves straight from it.
		ImagesDir string `yaml:"images_dir"`
	} `yaml:"server"`
	Storage struct {
		Driver   string `yaml:"driver"`
		Path     string `yaml:"path"`     // sqlite database file
		URI      string `yaml:"uri"`      // mongodb connection string
		Database string `yaml:"database"` // mongodb database name
	} `yaml:"storage"`
	Batch struct {
		DefaultCount int `yaml:"default_count"`
		MaxCount     int `yaml:"max_count"`
	} `yaml:"batch"`
	// Auth maps a contributor username to their API token. The token table
	// is the reference Authenticator; real deployments swap in an external
	// identity provider behind the same interface.
	Auth map[string]*ConfigAuth `yaml:"auth"`
	// Vocabulary optionally overrides the built-in obstruction options.
	Vocabulary []ConfigOption `yaml:"vocabulary"`
}

type ConfigAuth struct {
	Token string `yaml:"token"`
}

type ConfigOption struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

func LoadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var ret Config
	err = yaml.Unmarshal(data, &ret)
	if err != nil {
		return nil, err
	}
	ret.applyDefaults()
	if err := ret.validate(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Batch.DefaultCount == 0 {
		c.Batch.DefaultCount = 10
	}
	if c.Batch.MaxCount == 0 {
		c.Batch.MaxCount = 50
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage driver %s requires a database path", DriverSQLite)
		}
	case DriverMongo:
		if c.Storage.URI == "" || c.Storage.Database == "" {
			return fmt.Errorf("storage driver %s requires uri and database", DriverMongo)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	for user, auth := range c.Auth {
		if auth == nil || auth.Token == "" {
			return fmt.Errorf("user %s has a null token", user)
		}
	}
	for i, opt := range c.Vocabulary {
		if opt.Value == "" {
			return fmt.Errorf("vocabulary entry %d has no value", i)
		}
	}
	if c.Batch.DefaultCount > c.Batch.MaxCount {
		return fmt.Errorf("batch default_count %d exceeds max_count %d", c.Batch.DefaultCount, c.Batch.MaxCount)
	}
	return nil
}
