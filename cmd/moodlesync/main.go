package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/edusync/moodle-sync/internal/ingest"
	"github.com/edusync/moodle-sync/internal/moodle"
	"github.com/edusync/moodle-sync/internal/platform/envutil"
	"github.com/edusync/moodle-sync/internal/platform/logger"
	"github.com/edusync/moodle-sync/internal/platform/mailer"
	"github.com/edusync/moodle-sync/internal/server"
	"github.com/edusync/moodle-sync/internal/services"
	"github.com/edusync/moodle-sync/internal/store/sqlstore"
)

const defaultFeedURL = "https://tc.tugraz.at/main/local/oer/public_metadata.php"

func main() {
	// Logger
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Store
	db, err := sqlstore.OpenFromEnv(log)
	if err != nil {
		log.Fatal("store init failed", "error", err)
	}
	st, err := sqlstore.New(db, log)
	if err != nil {
		log.Fatal("store init failed", "error", err)
	}
	if err := st.AutoMigrate(); err != nil {
		log.Fatal("store migration failed", "error", err)
	}

	// Engine
	transport := ingest.NewHTTPTransport(envutil.Duration("DOWNLOAD_TIMEOUT", 10*time.Minute))
	engine := ingest.NewEngine(log, st, st, transport, envutil.Int("SYNC_WORKERS", 4))

	// Feed
	feedURL := envutil.String("MOODLE_FETCH_URL", defaultFeedURL)
	feed, err := moodle.NewFeedClient(log, feedURL, envutil.Duration("FEED_TIMEOUT", time.Minute))
	if err != nil {
		log.Fatal("feed client init failed", "error", err)
	}

	// Mailer (optional)
	var mail mailer.Client
	if os.Getenv("MAIL_API_KEY") != "" {
		mail, err = mailer.NewFromEnv(log)
		if err != nil {
			log.Fatal("mailer init failed", "error", err)
		}
	} else {
		log.Warn("MAIL_API_KEY unset, failure alerts disabled")
	}

	syncService := services.NewSyncService(log, feed, engine, mail)

	if envutil.String("RUN_MODE", "serve") == "once" {
		if _, err := syncService.RunOnce(context.Background()); err != nil {
			os.Exit(1)
		}
		return
	}

	// matches the upstream publication cadence: twice a year, shortly
	// after semester content lands
	schedule := envutil.String("MOODLE_SYNC_SCHEDULE", "0 30 2 10 2,7 *")
	if err := syncService.StartSchedule(schedule); err != nil {
		log.Fatal("schedule init failed", "error", err)
	}
	defer syncService.StopSchedule()

	router := server.NewRouter(server.RouterConfig{Log: log, Sync: syncService})
	addr := ":" + envutil.String("PORT", "8080")
	log.Info("listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
