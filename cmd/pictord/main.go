package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pictor/internal/config"
	"pictor/internal/daemonrun"
)

func main() {
	var configPath string
	var logLevel string
	var development bool
	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.StringVar(&logLevel, "log-level", "", "override configured log level")
	flag.BoolVar(&development, "dev", false, "verbose development logging")
	flag.Parse()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    logLevel,
		Development: development,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "pictord: %v\n", err)
		os.Exit(1)
	}
}
