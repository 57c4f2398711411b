package main

import (
	"context"
	"flag"
	"os"

	"github.com/Temutjin2k/schoolbus-hub/config"
	"github.com/Temutjin2k/schoolbus-hub/internal/app"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	// Printing configuration
	config.PrintConfig(cfg)

	level := cfg.Log.Level
	if !logger.ValidateLogLevel(level) {
		log.Warn(ctx, "unknown log level, falling back to INFO", "level", level)
		level = logger.LevelInfo
	}
	log = logger.InitLogger(cfg.ServiceName, level)

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
