package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/tgtools/votebot/internal/config"
	"github.com/tgtools/votebot/internal/dialog"
	"github.com/tgtools/votebot/internal/event"
	"github.com/tgtools/votebot/internal/polls"
	"github.com/tgtools/votebot/internal/ratelimit"
	"github.com/tgtools/votebot/internal/storage"
	"github.com/tgtools/votebot/internal/telegram"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	must(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	must(err)
	defer store.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	must(err)
	if cfg.LogVerbose {
		bot.Debug = true
	}
	log.Printf("Authorized on account @%s", bot.Self.UserName)

	var pub event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPub.Close()
		pub = kafkaPub
	}

	svc := polls.NewService(store, pub, cfg.BotUsername)
	dialogs := dialog.NewStore(cfg.DialogTTL())
	limiter := ratelimit.New(cfg.FloodLimit, cfg.FloodWindow())

	// Polling mode has no worker fleet; the handler broadcasts directly.
	handler := telegram.NewHandler(bot, svc, dialogs, limiter, nil, telegram.Options{
		BotUsername:     cfg.BotUsername,
		ChannelID:       cfg.ChannelID,
		AdminID:         cfg.AdminID,
		WelcomeImageURL: cfg.WelcomeImageURL,
	})

	// Evict expired dialog forms and idle flood buckets
	sweeper := cron.New()
	_, err = sweeper.AddFunc("@every 1m", func() {
		now := time.Now()
		dialogs.Sweep(now)
		limiter.Sweep(now)
	})
	must(err)
	sweeper.Start()
	defer sweeper.Stop()

	// Start updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down...")
			return
		case update := <-updates:
			handler.HandleUpdate(ctx, update)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		store, err := storage.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := storage.WaitForDB(ctx, store.DB); err != nil {
			store.Close()
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		return storage.NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
