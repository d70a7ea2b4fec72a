package main

import (
	"os"
	"time"

	"todooh/db"
	"todooh/reminder"
	"todooh/tgbot"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// getLogger creates the process-wide logger
func getLogger() (*zap.SugaredLogger, func() error) {
	logger, _ := zap.NewDevelopment(zap.Fields(zap.String("ns", "ToDooh")))

	log := logger.Sugar()
	return log, logger.Sync
}

type config struct {
	TgToken  string
	DBConn   string
	Timezone string
}

// readConfig reads configuration from the environment. A .env file is
// honored when present.
func readConfig(logger *zap.SugaredLogger) config {
	if err := godotenv.Load(); err != nil {
		logger.Debugw("no .env file loaded", "err", err)
	}

	cfg := config{
		TgToken:  os.Getenv("ACCESS_TOKEN"),
		DBConn:   os.Getenv("DB_URL"),
		Timezone: os.Getenv("TIMEZONE"),
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	return cfg
}

// ToDooh entry point
func main() {
	logger, syncLogs := getLogger()
	defer syncLogs()

	cfg := readConfig(logger)
	if cfg.TgToken == "" {
		logger.Fatal("ACCESS_TOKEN isn't set")
	}
	if cfg.DBConn == "" {
		logger.Fatal("DB_URL isn't set")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatalw("failed loading timezone", "timezone", cfg.Timezone, "err", err)
	}

	d, err := db.NewDatabase(cfg.DBConn)
	if err != nil {
		logger.Fatalw("failed to initialize database", "err", err)
	}
	defer d.Close()

	b, err := tgbot.NewTBot(cfg.TgToken, cfg.Timezone, logger)
	if err != nil {
		logger.Fatalw("failed to initialize Telegram Bot", "err", err)
	}

	sched := reminder.NewScheduler(reminder.Config{
		Store:    reminder.NewStore(),
		Gateway:  d,
		Notify:   b.SendReminder,
		Location: loc,
		Logger:   logger,
	})
	b.Scheduler = sched

	sched.Recover()

	b.Run()
}
