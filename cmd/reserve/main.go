package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"turquaz/internal/availability"
	"turquaz/internal/config"
	"turquaz/internal/datewindow"
	"turquaz/internal/events"
	"turquaz/internal/gateway"
	"turquaz/internal/localstore"
	"turquaz/internal/metrics"
	"turquaz/internal/models"
	"turquaz/internal/session"
	"turquaz/internal/sheetsapi"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	var (
		dateFlag   = flag.String("date", "", "reservation date (YYYY-MM-DD, default today)")
		shiftFlag  = flag.Int("shift", 0, "shift the selected date by N days")
		mealFlag   = flag.String("meal", "", "meal period: breakfast, lunch or dinner")
		timeFlag   = flag.String("time", "", "timeslot (HH:MM)")
		nameFlag   = flag.String("name", "", "guest name")
		phoneFlag  = flag.String("phone", "", "contact phone")
		guestsFlag = flag.Int("guests", 0, "guest count")
		noteFlag   = flag.String("note", "", "optional note")
		bookFlag   = flag.Bool("book", false, "submit the reservation")
		watchFlag  = flag.Bool("watch", false, "keep refreshing availability for the selected date")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("TURQUAZ_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		port := cfg.Monitoring.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go startMetricsServer(ctx, port, &logger)
	}

	client := sheetsapi.NewClient(cfg.API.BaseURL)
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	var fetcher availability.Fetcher = client
	var submitter gateway.Submitter = client
	if !client.Configured() {
		logger.Warn().Msg("no endpoint configured, using local fallback store")
		local, err := localstore.New(cfg.LocalStorePath(), &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open local store")
		}
		defer local.Close()
		fetcher = local
		submitter = local

		backup := localstore.NewBackupService(cfg.LocalStorePath(), cfg.LocalStore.Backup, &logger)
		go backup.Start(ctx)
	}

	store := availability.NewStore(fetcher, &logger)
	now := time.Now()
	window := datewindow.ReservationWindow(now, cfg.OpenDays())
	menus := cfg.Menus()
	sess := session.New(store, menus, window, cfg.SlotCapacity(), &logger)

	if err := sess.Init(ctx, now); err != nil {
		reportFetch(err, &logger)
	}

	if *dateFlag != "" {
		if err := sess.SelectDate(ctx, *dateFlag); err != nil {
			reportFetch(err, &logger)
		}
	}
	if *shiftFlag != 0 {
		moved, err := sess.ShiftDate(ctx, *shiftFlag)
		if err != nil {
			reportFetch(err, &logger)
		}
		if !moved {
			fmt.Println("Requested day is outside the booking window.")
		}
	}
	if *mealFlag != "" {
		if err := sess.SelectMeal(models.Meal(*mealFlag)); err != nil {
			logger.Fatal().Err(err).Str("meal", *mealFlag).Msg("select meal")
		}
	}
	if *timeFlag != "" {
		if err := sess.SelectTime(*timeFlag); err != nil {
			logger.Fatal().Err(err).Str("time", *timeFlag).Msg("select time")
		}
	}

	printSlots(sess, window)

	if *bookFlag {
		bus := events.NewBus()
		bus.Subscribe(events.TypeReservationAccepted, func(e events.Event) error {
			logger.Info().RawJSON("reservation", e.Payload).Msg("reservation recorded")
			return nil
		})

		g := gateway.New(submitter, store, bus, menus, cfg.SlotCapacity(), cfg.Freshness(), &logger)
		date, _, timeKey := sess.Selection()
		_, err := g.Submit(ctx, gateway.Request{
			Name:   *nameFlag,
			Phone:  *phoneFlag,
			Guests: *guestsFlag,
			Note:   *noteFlag,
			Date:   date,
			Time:   timeKey,
		})
		if err != nil {
			var rej *gateway.Rejection
			if errors.As(err, &rej) {
				fmt.Println(rej.Message)
				os.Exit(1)
			}
			logger.Fatal().Err(err).Msg("submit reservation")
		}
		fmt.Println("Your reservation has been received.")
		printSlots(sess, window)
	}

	if *watchFlag {
		watchAvailability(ctx, sess, store, &logger)
	}
}

func reportFetch(err error, logger *zerolog.Logger) {
	if errors.Is(err, availability.ErrUnavailable) {
		fmt.Println("Unable to load live availability right now.")
		return
	}
	logger.Error().Err(err).Msg("availability fetch")
}

func printSlots(sess *session.Session, window datewindow.Bounds) {
	date, meal, _ := sess.Selection()
	fmt.Printf("\n%s (%s)  window %s .. %s\n", date, meal, window.Min, window.Max)
	for _, view := range sess.SlotViews() {
		marker := " "
		if view.Selected {
			marker = ">"
		}
		fmt.Printf(" %s %s  %-7s %d guests\n", marker, view.Time, view.Status, view.Occupied)
	}
}

func watchAvailability(ctx context.Context, sess *session.Session, store *availability.Store, logger *zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			date, _, _ := sess.Selection()
			if _, err := store.Refresh(ctx, date); err != nil {
				reportFetch(err, logger)
			}
			printSlots(sess, sess.Window())
		}
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
