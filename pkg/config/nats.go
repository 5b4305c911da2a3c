package config

import (
	"fmt"
	"strings"
	"time"
)

type NATSConfig struct {
	Url      string        `koanf:"url"`
	Timeout  time.Duration `koanf:"timeout"`
	Name     string        `koanf:"name"`
	User     string        `koanf:"user"`
	Password string        `koanf:"password"`
}

// String returns a string representation of the NATS configuration.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  name: %s\n", c.Name))
	if c.User != "" {
		b.WriteString(fmt.Sprintf("  user: %s\n", c.User))
		b.WriteString("  password: ****\n")
	}
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	if c.User != "" && c.Password == "" {
		return fmt.Errorf("nats user is set but password is empty")
	}
	return nil
}
