package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/wattshare/wattshare-go/brightsky"
	"github.com/wattshare/wattshare-go/community"
	"github.com/wattshare/wattshare-go/config"
	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/logging"
	"github.com/wattshare/wattshare-go/notify"
	"github.com/wattshare/wattshare-go/openmeteo"
	"github.com/wattshare/wattshare-go/plants"
	"github.com/wattshare/wattshare-go/task"
	"github.com/wattshare/wattshare-go/telemetry"
	"github.com/wattshare/wattshare-go/users"
	"github.com/wattshare/wattshare-go/www"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("wattshare is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	live := telemetry.NewStore()
	if cnfg.Telemetry.Enabled && !isDevMode() {
		ingest := telemetry.New(
			cnfg.Telemetry.Host,
			int(cnfg.Telemetry.Port),
			cnfg.Telemetry.Username,
			cnfg.Telemetry.Password,
			cnfg.Telemetry.GetTopicPrefix(),
			live)
		if err := ingest.Connect(); err != nil {
			panic(fmt.Sprintf("telemetry connection error: %v", err))
		}
		defer ingest.Disconnect()
	} else {
		logger.Info("telemetry ingest disabled")
	}

	provider := forecast.NewCached(newProvider(cnfg.Forecast), db, cnfg.Forecast.GetFreshness())

	userSvc := users.NewService(db)
	plantSvc := plants.NewService(db, provider, userSvc, live)
	notifySvc := notify.NewService(db)
	communitySvc := community.NewService(db, plantSvc, userSvc, notifySvc)

	tasks := task.NewTasks(db, plantSvc, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks.Run()
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server := www.StartServer(db, userSvc, plantSvc, communitySvc, notifySvc, live, cnfg.Api)
	server.Run(ctx)
}

func newProvider(cnfg config.AppConfigForecast) forecast.Provider {
	switch cnfg.GetProvider() {
	case "bright-sky":
		return brightsky.New(cnfg.GetTimeout())
	default:
		return openmeteo.New(cnfg.GetTimeout())
	}
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
