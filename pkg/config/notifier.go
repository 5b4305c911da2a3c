package config

import (
	"fmt"
	"strings"
	"time"
)

// NotifierConfig configures publication of product change notifications.
// Stream is the JetStream stream acting as the exchange; Subject is the single
// subject bound to it. Consumers route on message headers, not on subjects.
type NotifierConfig struct {
	Enabled        bool                 `koanf:"enabled"`
	Stream         string               `koanf:"stream"`
	Subject        string               `koanf:"subject"`
	MaxAge         time.Duration        `koanf:"maxage"`
	PublishTimeout time.Duration        `koanf:"publishtimeout"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// String returns a string representation of the NotifierConfig.
func (c *NotifierConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Notifier ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  subject: %s\n", c.Subject))
	b.WriteString(fmt.Sprintf("  maxage: %s\n", c.MaxAge))
	b.WriteString(fmt.Sprintf("  publishtimeout: %s\n", c.PublishTimeout))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

func (c *NotifierConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Stream == "" {
		return fmt.Errorf("notifier stream is not configured")
	}
	if c.Subject == "" {
		return fmt.Errorf("notifier subject is not configured")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("notifier maxage must not be negative")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("notifier publish timeout must be greater than zero")
	}
	return c.CircuitBreaker.Validate()
}
