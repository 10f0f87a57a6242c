package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Services ServicesConfig `yaml:"services"`
	Auth     AuthConfig     `yaml:"auth"`
	Orders   OrdersConfig   `yaml:"orders"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type ServicesConfig struct {
	MenusURL string `yaml:"menus_url"`
	UsersURL string `yaml:"users_url"`
}

// AuthConfig holds the Keycloak client-credentials settings for the service
// token used on service-to-service calls.
type AuthConfig struct {
	BaseURL      string `yaml:"base_url"`
	Realm        string `yaml:"realm"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type OrdersConfig struct {
	// Cutoff is the "HH:MM:SS" time of day after which today's orders can no
	// longer be placed, changed or canceled.
	Cutoff string `yaml:"cutoff"`
	// Timezone is the IANA name of the calendar the cutoff is evaluated in.
	Timezone string `yaml:"timezone"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.Orders.Cutoff == "" {
		c.Orders.Cutoff = "09:00:00"
	}
	if c.Orders.Timezone == "" {
		c.Orders.Timezone = "UTC"
	}
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Orders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Orders.Timezone, err)
	}
	return loc, nil
}
