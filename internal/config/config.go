// Package config provides configuration loading and validation for docversions.
// Files are YAML; unset fields keep the values from Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/pkg/document"
	"github.com/nainya/docversions/pkg/storage"
	"github.com/nainya/docversions/pkg/version"
)

// Storage adapters
const (
	AdapterMemory = "memory"
	AdapterBadger = "badger"
)

// Config holds all configuration for a docversions server.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Storage  StorageConfig   `yaml:"storage"`
	Versions VersionsConfig  `yaml:"versions"`
	Services []ServiceConfig `yaml:"services" validate:"unique=Name,dive"`
}

type ServerConfig struct {
	GRPCAddr    string `yaml:"grpcAddr" validate:"required"`
	MetricsAddr string `yaml:"metricsAddr"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

type StorageConfig struct {
	Adapter    string `yaml:"adapter" validate:"required,oneof=memory badger"`
	Path       string `yaml:"path" validate:"required_if=Adapter badger"`
	SyncWrites bool   `yaml:"syncWrites"`
	IDStrategy string `yaml:"idStrategy" validate:"omitempty,oneof=sequence uuid"`
}

type VersionsConfig struct {
	ServiceName     string `yaml:"serviceName" validate:"required"`
	IDType          string `yaml:"idType" validate:"omitempty,oneof=int number string identity"`
	UserEntityField string `yaml:"userEntityField" validate:"required"`
	UserIDField     string `yaml:"userIdField" validate:"required"`
}

// ServiceConfig declares one document service and how it is versioned
type ServiceConfig struct {
	Name         string        `yaml:"name" validate:"required,excludesrune=/"`
	IDField      string        `yaml:"idField"`
	Track        bool          `yaml:"track"`
	Limit        int           `yaml:"limit" validate:"omitempty,min=2"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"gte=0"`
	IncludeMask  []string      `yaml:"includeMask" validate:"dive,required"`
	ExcludeMask  []string      `yaml:"excludeMask" validate:"dive,required"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:    ":50051",
			MetricsAddr: ":9090",
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Adapter:    AdapterMemory,
			SyncWrites: true,
			IDStrategy: "sequence",
		},
		Versions: VersionsConfig{
			ServiceName:     version.DefaultServiceName,
			IDType:          "int",
			UserEntityField: version.DefaultUserEntityField,
			UserIDField:     version.DefaultUserIDField,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-field rules of the version
// options
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.Versions.VersionConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Storage.IDs(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Adapter == "badger" && c.Storage.IDStrategy == "uuid" {
		switch c.Versions.IDType {
		case "", "int", "number":
			return fmt.Errorf("invalid config: versions.idType %q cannot cast uuid document ids, use string or identity", c.Versions.IDType)
		}
	}
	for _, s := range c.Services {
		if _, err := s.RecorderOptions(); err != nil {
			return fmt.Errorf("invalid config: service %s: %w", s.Name, err)
		}
	}
	return nil
}

// LoggerConfig converts the log section
func (l LogConfig) LoggerConfig() logger.Config {
	return logger.Config{Level: l.Level, Pretty: l.Pretty}
}

// KVConfig converts the storage section for storage.Open
func (s StorageConfig) KVConfig(log *logger.Logger) storage.Config {
	cfg := storage.DefaultConfig(s.Path)
	cfg.SyncWrites = s.SyncWrites
	if log != nil {
		cfg.Logger = log.GetZerolog()
	}
	return cfg
}

// IDs returns the id strategy of persistent stores
func (s StorageConfig) IDs() (document.IDStrategy, error) {
	return document.ParseIDStrategy(s.IDStrategy)
}

// VersionConfig converts the versions section. Adapter, logger, metrics
// and clock are left to the caller.
func (v VersionsConfig) VersionConfig() (version.Config, error) {
	caster, err := version.ParseIDType(v.IDType)
	if err != nil {
		return version.Config{}, err
	}
	return version.Config{
		IDType:          caster,
		ServiceName:     v.ServiceName,
		UserEntityField: v.UserEntityField,
		UserIDField:     v.UserIDField,
	}, nil
}

// RecorderOptions converts a service entry into recorder options
func (s ServiceConfig) RecorderOptions() (version.Options, error) {
	mask, err := version.MaskFromLists(s.IncludeMask, s.ExcludeMask)
	if err != nil {
		return version.Options{}, err
	}
	return version.Options{
		Limit:        s.Limit,
		SaveInterval: s.SaveInterval,
		Mask:         mask,
	}, nil
}
