package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/BeAltea/altea-pay/pkg/config"
	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/plan"
	"github.com/BeAltea/altea-pay/pkg/server"
	"github.com/BeAltea/altea-pay/pkg/service"
)

func main() {
	var (
		port     = pflag.String("port", "3000", "Server port")
		cfgFile  = pflag.StringP("config", "c", "", "Config file (default is config.yaml)")
		envFile  = pflag.String("env-file", ".env", "Environment file loaded before reading configuration")
		planFile = pflag.String("plan", "", "Plan whose company is used when an upload names none")
	)
	pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "altea-server",
	})

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal("env file", "err", err)
	}
	cfg, err := config.Build(*cfgFile, pflag.CommandLine)
	if err != nil {
		logger.Fatal("configuration", "err", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if err := cfg.Validate(false); err != nil {
		logger.Fatal("configuration", "err", err)
	}

	var company models.Company
	if *planFile != "" {
		p, err := plan.Load(*planFile)
		if err != nil {
			logger.Fatal("plan", "err", err)
		}
		company = p.Company
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, service.NewProcessor(cfg, logger), company, logger)
	addr := fmt.Sprintf("0.0.0.0:%s", *port)
	logger.Info("starting server", "addr", addr, "driver", cfg.Store.Driver)
	if err := srv.Start(ctx, addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
