// Package config предоставляет структуры и функции для парсинга и загрузки конфига.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	Store                   `yaml:"store"`
	HTTPServer              `yaml:"http_server"`
	GRPCServer              `yaml:"grpc_server"`
	JWTToken                `yaml:"jwttoken"`
	Entitlement             `yaml:"entitlement"`
	RateLimit               `yaml:"rate_limit"`
	RabbitMQ                `yaml:"rabbitmq"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// GRPCServer структура для настройки gRPC health-сервера. Пустой адрес отключает сервер.
type GRPCServer struct {
	AddressGRPC   string        `yaml:"addressgrpc" env:"GRPC_ADDRESS"`
	ProbeInterval time.Duration `yaml:"probe_interval" env-default:"5s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает, что кеш-хранилище не сконфигурировано.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env-default:"1"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"2s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"1s"`
}

// Store настройки работы с хранилищами: таймаут одной операции и повторы проверки доступности.
type Store struct {
	OpTimeout      time.Duration `yaml:"op_timeout" env:"STORE_OP_TIMEOUT" env-default:"2s"`
	PingRetries    uint64        `yaml:"ping_retries" env-default:"2"`
	PingRetryDelay time.Duration `yaml:"ping_retry_delay" env-default:"50ms"`
}

// JWTToken структура для работы с jwt-токенами
type JWTToken struct {
	JWTSecretKey    string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	Issuer          string `yaml:"issuer" env-default:"threadforge"`
	AccessTTLMin    int    `yaml:"access_ttl_minutes" env:"ACCESS_TOKEN_TTL_MINUTES" env-default:"30"`
	RefreshTTLDays  int    `yaml:"refresh_ttl_days" env:"REFRESH_TOKEN_TTL_DAYS" env-default:"7"`
	RememberTTLDays int    `yaml:"remember_me_ttl_days" env-default:"30"`
	BcryptCost      int    `yaml:"bcrypt_cost" env-default:"12"`
}

// AccessTTL время жизни access-токена.
func (j JWTToken) AccessTTL() time.Duration {
	return time.Duration(j.AccessTTLMin) * time.Minute
}

// RefreshTTL время жизни refresh-токена.
func (j JWTToken) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTTLDays) * 24 * time.Hour
}

// RememberTTL время жизни refresh-токена при входе с "запомнить меня".
func (j JWTToken) RememberTTL() time.Duration {
	return time.Duration(j.RememberTTLDays) * 24 * time.Hour
}

// Entitlement лимиты использования и параметры премиум-доступа.
type Entitlement struct {
	FreeDailyLimit      int `yaml:"free_daily_limit" env-default:"5"`
	FreeMonthlyLimit    int `yaml:"free_monthly_limit" env-default:"50"`
	PremiumDailyLimit   int `yaml:"premium_daily_limit" env-default:"200"`
	PremiumMonthlyLimit int `yaml:"premium_monthly_limit" env-default:"3000"`
	GrantBufferDays     int `yaml:"grant_buffer_days" env-default:"7"`
}

// RateLimit настройки ограничителя частоты для эндпоинтов аутентификации.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// RabbitMQ настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env-default:"accounts"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла, переменные окружения имеют приоритет.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StorageConnectionString == "" {
		return fmt.Errorf("storage_connection_string is required")
	}
	if c.AccessTTLMin <= 0 || c.RefreshTTLDays <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("store op_timeout must be positive")
	}
	return nil
}

// String возвращает конфиг без секретов, пригодный для логирования.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  Timeout: %s\n"+
			"Store:\n"+
			"  OpTimeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"GRPCServer:\n"+
			"  Address: %s\n"+
			"JWTToken:\n"+
			"  SecretConfigured: %t\n"+
			"  AccessTTL: %s\n"+
			"  RefreshTTL: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.TimeoutRedis,
		c.OpTimeout,
		c.AddressHTTP,
		c.AddressGRPC,
		c.JWTSecretKey != "",
		c.AccessTTL(),
		c.RefreshTTL(),
	)
}
