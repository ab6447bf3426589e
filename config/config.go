package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP   HTTP
		Log    Log
		PG     PG
		Kafka  Kafka
		Outbox Outbox
		App    App
	}

	HTTP struct {
		Port string `env:"HTTP_PORT" envDefault:"8080"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}

	PG struct {
		URL     string `env:"PG_URL,required"`
		PoolMax int    `env:"PG_POOL_MAX" envDefault:"4"`
	}

	Kafka struct {
		BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS,required"`
		GroupID          string `env:"KAFKA_GROUP_ID" envDefault:"order-service-users"`
		OrdersTopic      string `env:"KAFKA_ORDERS_TOPIC" envDefault:"orders.created"`
		UsersTopic       string `env:"KAFKA_USERS_TOPIC" envDefault:"users.created"`
	}

	Outbox struct {
		PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
		BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
		MaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`
	}

	App struct {
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
