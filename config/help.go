package config

import (
	"fmt"
	"os"
	"text/tabwriter"
)

const HelpMessage = `
School bus realtime hub

Usage:
  schoolbus-hub [--config-path <file>] [--help]

Options:
  --config-path   Path to the config yaml file (default: config.yaml)
  --help          Show this message

Every value can be set through the environment, which wins over the file:
  AUTH_JWT_SECRET                     shared HS256 secret (required)
  SERVER_HOST, SERVER_PORT            HTTP and websocket listener
  DATABASE_*                          PostgreSQL connection and pool
  RABBITMQ_ENABLED, RABBITMQ_*        broker connection and exchanges
  WEBSOCKET_*                         heartbeat, queue and rate limits
  SCHEDULE_ENFORCE_DRIVER_ASSIGNMENT  restrict drivers to their own schedules
  ASYNC_WORKERS, ASYNC_QUEUE_SIZE     background persistence pool
  LOG_LEVEL                           DEBUG, INFO, WARN or ERROR
`

func PrintHelp() {
	fmt.Print(HelpMessage)
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "CONFIG\tVALUE")
	fmt.Fprintf(w, "service\t%s\n", cfg.ServiceName)
	fmt.Fprintf(w, "server\t%s:%s\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(w, "database\t%s@%s:%s/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Fprintf(w, "rabbitmq\tenabled=%t %s:%s\n", cfg.RabbitMQ.Enabled, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Fprintf(w, "websocket\tping=%s pong=%s queue=%d rate=%.1f/s burst=%d\n",
		cfg.WebSocket.PingInterval, cfg.WebSocket.PongWait, cfg.WebSocket.SendQueueSize, cfg.WebSocket.EventRate, cfg.WebSocket.EventBurst)
	fmt.Fprintf(w, "auth.jwt_secret\t%s\n", mask(cfg.Auth.JWTSecret))
	fmt.Fprintf(w, "schedule.enforce_driver_assignment\t%t\n", cfg.Schedule.EnforceDriverAssignment)
	fmt.Fprintf(w, "async\tworkers=%d queue=%d\n", cfg.Async.Workers, cfg.Async.QueueSize)
	fmt.Fprintf(w, "log.level\t%s\n", cfg.Log.Level)
}

func mask(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return "********"
}
