package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"turquaz/internal/admin"
	"turquaz/internal/config"
	"turquaz/internal/datewindow"
	"turquaz/internal/localstore"
	"turquaz/internal/metrics"
	"turquaz/internal/sheetsapi"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	var (
		userFlag   = flag.String("user", "", "admin username")
		passFlag   = flag.String("pass", "", "admin password")
		dateFlag   = flag.String("date", "", "day to list (YYYY-MM-DD, default today)")
		shiftFlag  = flag.Int("shift", 0, "shift the listed day by N days")
		exportFlag = flag.String("export", "", "write the day's reservations to an XLSX file")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("TURQUAZ_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	client := sheetsapi.NewClient(cfg.API.BaseURL)
	var local admin.LocalLister
	if !client.Configured() {
		logger.Warn().Msg("no endpoint configured, using local fallback store")
		store, err := localstore.New(cfg.LocalStorePath(), &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open local store")
		}
		defer store.Close()
		local = store
	}

	now := time.Now()
	window := datewindow.AdminWindow(now)
	fallback := admin.Credentials{Username: cfg.AdminUsername(), Password: cfg.AdminPassword()}
	svc := admin.NewService(client, local, fallback, window, nil, &logger)

	if *userFlag == "" || *passFlag == "" {
		fmt.Println("Use admin credentials to access reservations.")
		os.Exit(1)
	}
	if err := svc.Login(ctx, *userFlag, *passFlag); err != nil {
		if errors.Is(err, admin.ErrBadCredentials) {
			fmt.Println("Invalid credentials.")
			os.Exit(1)
		}
		logger.Fatal().Err(err).Msg("admin login")
	}

	date := *dateFlag
	if date == "" {
		date = datewindow.Key(now)
	}
	date = datewindow.Clamp(date, window)
	if *shiftFlag != 0 {
		if next, ok := svc.Shift(date, *shiftFlag); ok {
			date = next
		}
	}

	rows, summary, err := svc.List(ctx, date)
	if err != nil {
		logger.Fatal().Err(err).Str("date", date).Msg("list reservations")
	}

	if len(rows) == 0 {
		fmt.Printf("No reservations found for %s.\n", date)
	} else {
		fmt.Printf("Reservations for %s:\n\n", date)
		fmt.Printf("%-6s %-10s %-24s %-14s %7s  %s\n", "Time", "Meal", "Name", "Phone", "Guests", "Note")
		for _, row := range rows {
			fmt.Printf("%-6s %-10s %-24s %-14s %7d  %s\n", row.Time, row.Meal, row.Name, row.Phone, row.Guests, row.Note)
		}
		fmt.Printf("\nReservations: %d   Guests: %d   Meals: B:%d L:%d D:%d\n",
			summary.Reservations, summary.Guests, summary.Breakfast, summary.Lunch, summary.Dinner)
	}

	if *exportFlag != "" {
		out, err := os.Create(*exportFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("create export file")
		}
		defer out.Close()
		if err := admin.ExportDay(out, date, rows); err != nil {
			logger.Fatal().Err(err).Msg("export reservations")
		}
		logger.Info().Str("path", *exportFlag).Int("rows", len(rows)).Msg("exported day")
	}
}
