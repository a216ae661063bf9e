// Package config binds the YAML configuration file (spec §6) to the
// broker, store, and environment settings the CLI needs to assemble a
// running process, using viper the way the teacher's cmd/root.go does.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/broker"
)

// ResourceKind selects the store backend a resource is registered with.
type ResourceKind string

const (
	StoreMemory ResourceKind = "memory"
	StoreBolt   ResourceKind = "bbolt"
)

// Resource is one entry of the config file's resources list.
type Resource struct {
	Name  string       `mapstructure:"name"`
	Store ResourceKind `mapstructure:"store"`
}

// Config is the fully bound process configuration.
type Config struct {
	Broker      broker.Settings `mapstructure:"broker"`
	Queue       string          `mapstructure:"queue"`
	Resources   []Resource      `mapstructure:"resources"`
	Environment string          `mapstructure:"environment"`
}

// Load reads configuration from v (already pointed at a config file by the
// caller) into a Config, applying defaults for keys that are unset: a 30s
// broker timeout and the "development" environment.
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("broker.timeoutSeconds", 30)
	v.SetDefault("environment", "development")

	var raw struct {
		Broker struct {
			Hostname       string `mapstructure:"hostname"`
			Username       string `mapstructure:"username"`
			Password       string `mapstructure:"password"`
			TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
		} `mapstructure:"broker"`
		Queue       string     `mapstructure:"queue"`
		Resources   []Resource `mapstructure:"resources"`
		Environment string     `mapstructure:"environment"`
	}

	if err := v.Unmarshal(&raw); err != nil {
		return nil, apperr.Wrap(apperr.InternalServerError, "CONFIG_INVALID", "failed to decode configuration", err)
	}

	if raw.Queue == "" {
		return nil, apperr.New(apperr.InternalServerError, "CONFIG_INVALID", "queue is required")
	}

	return &Config{
		Broker: broker.Settings{
			Hostname: raw.Broker.Hostname,
			Username: raw.Broker.Username,
			Password: raw.Broker.Password,
			Timeout:  time.Duration(raw.Broker.TimeoutSeconds) * time.Second,
		},
		Queue:       raw.Queue,
		Resources:   raw.Resources,
		Environment: raw.Environment,
	}, nil
}

// AppEnvironment renders c.Environment as an apperr.Environment, defaulting to
// Production (the safest disclosure posture) on an unrecognized value.
func (c *Config) AppEnvironment() apperr.Environment {
	switch c.Environment {
	case "development":
		return apperr.Development
	case "staging":
		return apperr.Staging
	case "production":
		return apperr.Production
	default:
		return apperr.Production
	}
}

func (r Resource) validate() error {
	switch r.Store {
	case StoreMemory, StoreBolt:
		return nil
	default:
		return fmt.Errorf("config: resource %q has unknown store kind %q", r.Name, r.Store)
	}
}

// ValidateResources checks that every configured resource names a known
// store backend, failing startup early rather than at first use.
func (c *Config) ValidateResources() error {
	for _, r := range c.Resources {
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}
