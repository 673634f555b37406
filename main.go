// Package main implements a Cloud Run service that schedules social posts
// and dispatches them to Twitter and Blogger when they come due.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/robfig/cron/v3"

	"postscheduler/dispatch"
	"postscheduler/oauth1"
	"postscheduler/pkg/scheduler"
	"postscheduler/platform"
	"postscheduler/schedule"
	"postscheduler/server"
	"postscheduler/store"
)

func main() {
	ctx := context.Background()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Check for local development mode
	localStorage := os.Getenv("LOCAL_STORAGE")
	bucket := os.Getenv("STORAGE_BUCKET")
	sqlitePath := os.Getenv("SQLITE_PATH")

	// Default to local development mode if no backend specified
	if bucket == "" && localStorage == "" && sqlitePath == "" {
		localStorage = "./data"
		logger.Info("No STORAGE_BUCKET or SQLITE_PATH set, defaulting to local development mode", "storage_path", localStorage)
	}

	// A GCS bucket implies production; PRODUCTION forces it for SQLite or
	// local-directory deployments so missing platform credentials stay fatal.
	production := bucket != "" || os.Getenv("PRODUCTION") != ""

	var postStore store.Store
	switch {
	case sqlitePath != "":
		logger.Info("Using SQLite post store", "path", sqlitePath)
		db, err := store.OpenSQLite(sqlitePath, logger)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close SQLite store", "error", err)
			}
		}()
		postStore = db
	case production:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Error("Failed to initialize Storage client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
		postStore = store.NewObjectStore(client, bucket, "", logger)
	default:
		logger.Info("Running in local development mode", "storage_path", localStorage)
		if err := os.MkdirAll(localStorage, 0o755); err != nil {
			logger.Error("Failed to create local storage directory", "error", err)
			os.Exit(1)
		}
		postStore = store.NewObjectStore(nil, "", localStorage, logger)
	}

	publishers, err := buildPublishers(ctx, logger, production)
	if err != nil {
		logger.Error("Failed to initialize publishers", "error", err)
		os.Exit(1)
	}

	scheduleSvc := schedule.New(&schedule.Config{
		Store:      postStore,
		Publishers: publishers,
		Logger:     logger,
	})

	loop := dispatch.New(&dispatch.Config{
		Store:      postStore,
		Publishers: publishers,
		Logger:     logger,
	})

	// Optional in-process trigger for environments without Cloud Scheduler.
	if spec := os.Getenv("DISPATCH_CRON"); spec != "" {
		if err := startCron(ctx, spec, loop, logger); err != nil {
			logger.Error("Failed to start dispatch cron", "error", err, "spec", spec)
			os.Exit(1)
		}
	}

	srv := server.New(&server.Config{
		Scheduler:  scheduleSvc,
		Dispatcher: loop,
		Lister:     postStore,
		Logger:     logger,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := srv.ListenAndServe(port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// buildPublishers assembles the platform registry from environment
// credentials. In local development, platforms without credentials fall
// back to a mock publisher; in production missing credentials are fatal.
func buildPublishers(ctx context.Context, logger *slog.Logger, production bool) (platform.Registry, error) {
	publishers := platform.Registry{}

	signer := &oauth1.Signer{
		ConsumerKey:    os.Getenv("TWITTER_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("TWITTER_CONSUMER_SECRET"),
		Token:          os.Getenv("TWITTER_ACCESS_TOKEN"),
		TokenSecret:    os.Getenv("TWITTER_ACCESS_SECRET"),
	}
	twitter, err := platform.NewTwitter(signer, logger)
	switch {
	case err == nil:
		publishers[scheduler.PlatformTwitter] = twitter
	case production:
		return nil, err
	default:
		logger.Info("Mock Twitter mode enabled (missing TWITTER_* credentials)", "error", err)
		publishers[scheduler.PlatformTwitter] = platform.NewMock(logger)
	}

	credsJSON := os.Getenv("GOOGLE_CREDENTIALS_JSON")
	blogID := os.Getenv("BLOGGER_BLOG_ID")
	if credsJSON != "" && blogID != "" {
		service, err := platform.NewBloggerService(ctx, []byte(credsJSON))
		if err != nil {
			return nil, err
		}
		blog, err := platform.NewBlogger(service, blogID, logger)
		if err != nil {
			return nil, err
		}
		publishers[scheduler.PlatformBlogger] = blog
	} else if production {
		logger.Error("GOOGLE_CREDENTIALS_JSON and BLOGGER_BLOG_ID environment variables required")
		return nil, &scheduler.ConfigError{Missing: []string{"GOOGLE_CREDENTIALS_JSON", "BLOGGER_BLOG_ID"}}
	} else {
		logger.Info("Mock Blogger mode enabled (missing GOOGLE_CREDENTIALS_JSON or BLOGGER_BLOG_ID)")
		publishers[scheduler.PlatformBlogger] = platform.NewMock(logger)
	}

	return publishers, nil
}

// startCron runs the dispatch loop on a cron schedule. A busy flag keeps
// a slow pass from overlapping the next tick.
func startCron(ctx context.Context, spec string, loop *dispatch.Loop, logger *slog.Logger) error {
	var busy atomic.Bool

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if !busy.CompareAndSwap(false, true) {
			logger.Warn("Skipping dispatch tick, previous pass still running")
			return
		}
		defer busy.Store(false)

		result, err := loop.Run(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Scheduled dispatch pass failed", "error", err)
			return
		}
		logger.Info("Scheduled dispatch pass completed",
			"processed", result.Processed,
			"sent", result.Sent,
			"failed", result.Failed)
	})
	if err != nil {
		return err
	}

	c.Start()
	logger.Info("Dispatch cron started", "spec", spec)
	return nil
}
