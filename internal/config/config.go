// Package config resolves process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Settings are the values read from the process environment.
type Settings struct {
	Env        string `env:"NEAR_ENV,default=development"`
	ListenAddr string `env:"LISTEN_ADDR,default=0.0.0.0:8080"`
	PublicURL  string `env:"PUBLIC_URL,default=http://localhost:8080"`

	// Overrides of the network table.
	ContractName string `env:"CONTRACT_NAME"`
	NodeURL      string `env:"NEAR_NODE_URL"`
	RelayerURL   string `env:"NEAR_RELAYER_URL"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=24h"`

	ContractGas uint64        `env:"CONTRACT_GAS,default=10000000000000"`
	RPCTimeout  time.Duration `env:"RPC_TIMEOUT,default=10s"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`
	DatabaseURL string        `env:"DATABASE_URL"`

	ChangeRateLimit float64 `env:"CHANGE_RATE_LIMIT,default=1"`
	ChangeRateBurst int     `env:"CHANGE_RATE_BURST,default=5"`
}

type Config struct {
	Settings
	Network Network
}

// Load reads an optional .env file, decodes the environment and resolves the
// selected network.
func Load(log logrus.FieldLogger) (*Config, error) {
	settings, err := LoadSettings(log)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Settings: *settings}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings decodes the environment without resolving or validating the
// network. Tools that only make view calls start from here.
func LoadSettings(log logrus.FieldLogger) (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}

	var s Settings
	if err := envdecode.Decode(&s); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	return &s, nil
}

func (c *Config) resolve() error {
	network, err := Resolve(c.Env)
	if err != nil {
		return err
	}
	if c.ContractName != "" {
		network.ContractName = c.ContractName
	}
	if c.NodeURL != "" {
		network.NodeURL = c.NodeURL
	}
	c.Network = network

	if c.ContractGas == 0 {
		return errors.New("CONTRACT_GAS must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.ChangeRateLimit <= 0 || c.ChangeRateBurst <= 0 {
		return errors.New("CHANGE_RATE_LIMIT and CHANGE_RATE_BURST must be positive")
	}
	if network.Backend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for NEAR_ENV=%s", c.Env)
	}
	if c.SessionSecret == "" {
		if network.Backend != BackendMemory {
			return fmt.Errorf("SESSION_SECRET is required for NEAR_ENV=%s", c.Env)
		}
		c.SessionSecret = "near-poll-" + network.Env
	}
	return nil
}
