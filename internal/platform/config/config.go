package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Backend identifica el backend de persistencia elegido al arrancar.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// StoreConfig selecciona e inicializa el backend de persistencia.
type StoreConfig struct {
	Backend    Backend
	SQLitePath string
	Redis      RedisConfig
}

// RedisConfig configuración del flat store (Redis).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RetryConfig política de reintentos del store validado.
type RetryConfig struct {
	Attempts    int
	BaseDelay   time.Duration
	InitTimeout time.Duration
}

// NotifyConfig webhook de recordatorios.
type NotifyConfig struct {
	WebhookURL string
	Interval   time.Duration
}

// Config raíz de la aplicación.
type Config struct {
	Port   string
	Store  StoreConfig
	Retry  RetryConfig
	Notify NotifyConfig
}

// LoadFromEnv carga configuración desde variables de entorno con defaults
// razonables para dev (sqlite local, sin webhook).
func LoadFromEnv() Config {
	cfg := Config{
		Port: "8080",
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./data/medreminder.db",
			Redis:      RedisConfig{Addr: "localhost:6379"},
		},
		Retry: RetryConfig{
			Attempts:    3,
			BaseDelay:   100 * time.Millisecond,
			InitTimeout: 5 * time.Second,
		},
		Notify: NotifyConfig{
			Interval: time.Minute,
		},
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))) {
	case "redis":
		cfg.Store.Backend = BackendRedis
	case "sqlite", "":
		cfg.Store.Backend = BackendSQLite
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	cfg.Store.Redis.LoadFromEnv("REDIS")

	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Retry.Attempts)
	}
	if v := os.Getenv("RETRY_BASE_DELAY_MS"); v != "" {
		var ms int
		fmt.Sscanf(v, "%d", &ms)
		if ms > 0 {
			cfg.Retry.BaseDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("INIT_TIMEOUT_MS"); v != "" {
		var ms int
		fmt.Sscanf(v, "%d", &ms)
		if ms > 0 {
			cfg.Retry.InitTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("NOTIFY_INTERVAL_MS"); v != "" {
		var ms int
		fmt.Sscanf(v, "%d", &ms)
		if ms > 0 {
			cfg.Notify.Interval = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

// LoadFromEnv carga la config de Redis con prefijo (ej: REDIS_ADDR).
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		fmt.Sscanf(db, "%d", &c.DB)
	}
}
