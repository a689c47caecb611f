package config

import (
	"os"
	"time"
)

// ConsoleConfig configures cmd/console, the operator-side refresh coordinator.
type ConsoleConfig struct {
	Env           string        `yaml:"env" env:"ENV" env-default:"local"`
	API           APIClient     `yaml:"api"`
	Refresh       RefreshConfig `yaml:"refresh"`
	Debounce      time.Duration `yaml:"debounce" env-default:"300ms"`
	ProbeInterval time.Duration `yaml:"probe_interval" env-default:"15s"`
}

type APIClient struct {
	BaseURL string        `yaml:"base_url" env:"CONSOLE_API_URL" env-default:"http://localhost:8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
	Token   string        `yaml:"token" env:"CONSOLE_API_TOKEN"`
}

type RefreshConfig struct {
	Dashboard time.Duration `yaml:"dashboard" env-default:"60s"`
	Tickets   time.Duration `yaml:"tickets" env-default:"30s"`
	Lists     time.Duration `yaml:"lists" env-default:"120s"`
}

func MustLoadConsole() *ConsoleConfig {
	path := os.Getenv("CONSOLE_CONFIG_PATH")
	if path == "" {
		path = "config/console.yaml"
	}

	return MustLoadConsoleByPath(path)
}

func MustLoadConsoleByPath(configPath string) *ConsoleConfig {
	var cfg ConsoleConfig
	mustRead(configPath, &cfg)

	return &cfg
}
