package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	TransportLog   = "log"
	TransportKafka = "kafka"
)

type Config struct {
	Env          string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   HTTPServer    `yaml:"http_server"`
	Storage      Storage       `yaml:"storage"`
	Clickhouse   Clickhouse    `yaml:"clickhouse"`
	RedisStorage RedisStorage  `yaml:"redis"`
	Kafka        KafkaStorage  `yaml:"kafka"`
	Notify       NotifyConfig  `yaml:"notify"`
	Admin        AdminConfig   `yaml:"admin"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Pagination   Pagination    `yaml:"pagination"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_SERVER_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Storage struct {
	Driver   string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DbName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SslMode  string `yaml:"sslmode" env-default:"disable"`
}

func (s Storage) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.DbName, s.SslMode,
	)
}

// URL is the DSN in the form golang-migrate expects.
func (s Storage) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, s.Port),
		Path:     s.DbName,
		RawQuery: "sslmode=" + s.SslMode,
	}
	return u.String()
}

type Clickhouse struct {
	Enabled  bool          `yaml:"enabled" env:"CLICKHOUSE_ENABLED"`
	Addr     string        `yaml:"addr" env-default:"clickhouse:8123"`
	Database string        `yaml:"database" env-default:"default"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password" env:"CLICKHOUSE_PASSWORD"`
	Protocol string        `yaml:"protocol" env-default:"http"`
	MaxWait  time.Duration `yaml:"max_wait" env-default:"60s"`
}

type RedisStorage struct {
	Addr      string        `yaml:"addr" env:"REDIS_ADDR"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl" env-default:"720h"`
}

type KafkaStorage struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"push-notifications"`
}

type NotifyConfig struct {
	Transport     string        `yaml:"transport" env:"NOTIFY_TRANSPORT" env-default:"log"`
	SendTimeout   time.Duration `yaml:"send_timeout" env-default:"5s"`
	ReportTimeout time.Duration `yaml:"report_timeout" env-default:"2s"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
}

type MetricsConfig struct {
	TopN             int    `yaml:"top_n" env-default:"10"`
	DailyDays        int    `yaml:"daily_days" env-default:"7"`
	WeeklyDays       int    `yaml:"weekly_days" env-default:"30"`
	DefaultRangeDays int    `yaml:"default_range_days" env-default:"30"`
	Timezone         string `yaml:"timezone" env-default:"UTC"`
}

// Location resolves the configured timezone, falling back to UTC.
func (m MetricsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Pagination struct {
	DefaultPerPage int `yaml:"default_per_page" env-default:"50"`
	MaxPerPage     int `yaml:"max_per_page" env-default:"100"`
}

func (c *Config) GetRedisAddr() string {
	return c.RedisStorage.Addr
}

func (c *Config) GetRedisPassword() string {
	return c.RedisStorage.Password
}

func MustLoad() *Config {
	return MustLoadByPath(configPath())
}

func MustLoadByPath(configPath string) *Config {
	var cfg Config
	mustRead(configPath, &cfg)

	if err := cfg.Validate(); err != nil {
		panic("invalid config: " + err.Error())
	}

	return &cfg
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	switch c.Notify.Transport {
	case TransportLog:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers: required for the kafka transport")
		}
	default:
		return fmt.Errorf("notify.transport: unknown transport %q", c.Notify.Transport)
	}

	if c.Pagination.MaxPerPage < 1 {
		return fmt.Errorf("pagination.max_per_page: must be positive")
	}

	if c.Metrics.TopN < 1 {
		return fmt.Errorf("metrics.top_n: must be positive")
	}

	return nil
}

func configPath() string {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	return path
}

func mustRead(configPath string, cfg any) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}
}
