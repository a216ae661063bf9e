// Package broker binds AMQP 0.9.1 connection settings and provides a
// shared-connection helper used by both producer and consumer.
package broker

import (
	"fmt"
	"time"
)

// Settings are the connection parameters bound at startup (spec §3).
type Settings struct {
	Hostname string        `mapstructure:"hostname"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultTimeout is used when Settings.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// URL renders the amqp091-go dial string for these settings.
func (s Settings) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s/", s.Username, s.Password, s.Hostname)
}

// TimeoutOrDefault returns s.Timeout, falling back to DefaultTimeout when
// it is zero.
func (s Settings) TimeoutOrDefault() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}
