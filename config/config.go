package config

import (
	"fmt"
	"time"

	"github.com/Temutjin2k/schoolbus-hub/pkg/configparser"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		ServiceName string `env:"SERVICE_NAME" default:"schoolbus-hub"`

		Server    ServerConfig
		Database  DatabaseConfig
		RabbitMQ  RabbitMQConfig
		WebSocket WebSocketConfig
		Auth      Auth
		Schedule  ScheduleConfig
		Async     AsyncConfig
		Log       LogConfig
	}

	ServerConfig struct {
		Host string `env:"SERVER_HOST" default:"0.0.0.0"`
		Port string `env:"SERVER_PORT" default:"3000"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"schoolbus_user"`
		Password string `env:"DATABASE_PASSWORD" default:"schoolbus_pass"`
		Database string `env:"DATABASE_DATABASE" default:"schoolbus_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"true"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`

		LocationExchange     string `env:"RABBITMQ_LOCATION_EXCHANGE" default:"location_fanout"`
		NotificationExchange string `env:"RABBITMQ_NOTIFICATION_EXCHANGE" default:"notification_topic"`
		NotificationQueue    string `env:"RABBITMQ_NOTIFICATION_QUEUE" default:"hub_notifications"`
		Prefetch             int    `env:"RABBITMQ_PREFETCH" default:"20"`
	}

	WebSocketConfig struct {
		PingInterval   time.Duration `env:"WEBSOCKET_PING_INTERVAL" default:"25s"`
		PongWait       time.Duration `env:"WEBSOCKET_PONG_WAIT" default:"60s"`
		WriteWait      time.Duration `env:"WEBSOCKET_WRITE_WAIT" default:"10s"`
		MaxMessageSize int64         `env:"WEBSOCKET_MAX_MESSAGE_SIZE" default:"8192"`
		SendQueueSize  int           `env:"WEBSOCKET_SEND_QUEUE_SIZE" default:"64"`
		EventRate      float64       `env:"WEBSOCKET_EVENT_RATE" default:"20"`
		EventBurst     int           `env:"WEBSOCKET_EVENT_BURST" default:"40"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET"`
	}

	ScheduleConfig struct {
		EnforceDriverAssignment bool `env:"SCHEDULE_ENFORCE_DRIVER_ASSIGNMENT" default:"false"`
	}

	AsyncConfig struct {
		Workers   int `env:"ASYNC_WORKERS" default:"8"`
		QueueSize int `env:"ASYNC_QUEUE_SIZE" default:"1024"`
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Auth.JWTSecret == "":
		return fmt.Errorf("%w: AUTH_JWT_SECRET", ErrMissingValue)
	case c.WebSocket.PingInterval >= c.WebSocket.PongWait:
		return fmt.Errorf("%w: WEBSOCKET_PING_INTERVAL must be shorter than WEBSOCKET_PONG_WAIT", ErrInvalidValue)
	case c.WebSocket.SendQueueSize <= 0:
		return fmt.Errorf("%w: WEBSOCKET_SEND_QUEUE_SIZE must be positive", ErrInvalidValue)
	case c.Async.Workers <= 0:
		return fmt.Errorf("%w: ASYNC_WORKERS must be positive", ErrInvalidValue)
	}
	return nil
}
