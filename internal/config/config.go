package config

import (
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"
)

// Service holds the settings shared by every service binary. Values come
// from an optional YAML file, with PORT and NATS_URL environment variables
// taking precedence.
type Service struct {
	Port    string `yaml:"port"`
	NATSURL string `yaml:"nats_url"`
}

// Load reads the service config. A missing file is not an error; the
// defaults and environment cover it.
func Load(path, defaultPort string) (Service, error) {
	cfg := Service{
		Port:    defaultPort,
		NATSURL: nats.DefaultURL,
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Service{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Service{}, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	return cfg, nil
}
