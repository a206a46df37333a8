package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/tgtools/votebot/internal/async"
	"github.com/tgtools/votebot/internal/config"
	"github.com/tgtools/votebot/internal/dialog"
	"github.com/tgtools/votebot/internal/event"
	"github.com/tgtools/votebot/internal/polls"
	"github.com/tgtools/votebot/internal/ratelimit"
	"github.com/tgtools/votebot/internal/storage"
	"github.com/tgtools/votebot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	// Webhook mode runs on Postgres: River needs it for the job queue.
	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatal("storage_driver must be postgres in webhook mode")
	}
	if cfg.WebhookURL == "" {
		log.Fatal("webhook_url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	if err := storage.WaitForDB(ctx, store.DB); err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.LogVerbose {
		bot.Debug = true
	}
	log.Printf("Authorized on account @%s", bot.Self.UserName)

	// Initialize River client (insert-only) and enqueuer
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to create pgx pool: %v", err)
	}
	defer dbPool.Close()
	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{})
	if err != nil {
		log.Fatalf("failed to create river client: %v", err)
	}
	enq := async.NewRiverEnqueuer(riverClient)
	defer enq.Close()

	var pub event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPub.Close()
		pub = kafkaPub
	}

	svc := polls.NewService(store, pub, cfg.BotUsername)
	dialogs := dialog.NewStore(cfg.DialogTTL())
	limiter := ratelimit.New(cfg.FloodLimit, cfg.FloodWindow())
	handler := telegram.NewHandler(bot, svc, dialogs, limiter, enq, telegram.Options{
		BotUsername:     cfg.BotUsername,
		ChannelID:       cfg.ChannelID,
		AdminID:         cfg.AdminID,
		WelcomeImageURL: cfg.WelcomeImageURL,
	})

	// Configure webhook
	wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
	if err != nil {
		log.Fatalf("failed to build webhook: %v", err)
	}
	if _, err := bot.Request(wh); err != nil {
		log.Fatalf("failed to set webhook: %v", err)
	}
	info, err := bot.GetWebhookInfo()
	if err == nil {
		log.Printf("Webhook set: pending updates: %d", info.PendingUpdateCount)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/telegram/webhook", func(w http.ResponseWriter, req *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(req.Body).Decode(&update); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handler.HandleUpdate(req.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("Service listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
}
