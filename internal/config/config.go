package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"Splitbook"`
		Port      int    `envconfig:"PORT" default:"8080"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"splitbook"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		Secret string `envconfig:"JWT_SECRET" default:""`
		Issuer string `envconfig:"JWT_ISSUER" default:""`
	}

	// Query bounds the reads issued against the transaction store.
	Query struct {
		MaxMembership int `envconfig:"QUERY_MAX_MEMBERSHIP" default:"10"`
		ListLimit     int `envconfig:"QUERY_LIST_LIMIT" default:"200"`
	}

	// Redis is optional. Warning state lives in memory when Addr is empty.
	Redis struct {
		Addr     string        `envconfig:"REDIS_ADDR"`
		Password string        `envconfig:"REDIS_PASSWORD" default:""`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		TTL      time.Duration `envconfig:"REDIS_WARNING_TTL" default:"1488h"`
	}

	// AMQP is optional. Budget warnings are only logged when URL is empty.
	AMQP struct {
		URL        string `envconfig:"AMQP_URL"`
		Exchange   string `envconfig:"AMQP_EXCHANGE" default:"splitbook"`
		RoutingKey string `envconfig:"AMQP_ROUTING_KEY" default:"budget_warnings"`
	}

	// TUI.User is the identity the terminal UI acts as. The UI asks for it
	// when empty.
	TUI struct {
		User string `envconfig:"SPLITBOOK_USER"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Query.MaxMembership <= 0 {
		return nil, fmt.Errorf("QUERY_MAX_MEMBERSHIP must be positive, got %d", cfg.Query.MaxMembership)
	}

	if cfg.Query.ListLimit <= 0 {
		return nil, fmt.Errorf("QUERY_LIST_LIMIT must be positive, got %d", cfg.Query.ListLimit)
	}

	return &cfg, nil
}
