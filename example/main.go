package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cyp0633/librepeat/config"
	"github.com/cyp0633/librepeat/ics"
	"github.com/cyp0633/librepeat/recurrence"
	"github.com/cyp0633/librepeat/schedule"
	"github.com/cyp0633/librepeat/storage"
	"github.com/cyp0633/librepeat/storage/memory"
	"github.com/cyp0633/librepeat/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"
)

func main() {
	configPath := flag.String("config", "librepeat.yaml", "path to the YAML configuration")
	format := flag.String("format", "ics", "output format: ics, series or xcal")
	flag.Parse()

	if err := run(*configPath, *format); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(configPath, format string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	engine := recurrence.NewEngineWithConfig(cfg.EngineConfig(), recurrence.WithLogger(logger))
	defer engine.Close()

	ctx := context.Background()

	var store storage.Storage = memory.New(memory.WithLogger(logger))
	if cfg.DatabaseURL != "" {
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(startupCtx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		if err := postgres.Migrate(startupCtx, pool); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		store = postgres.New(pool, postgres.WithLogger(logger))
	}
	svc := schedule.NewService(engine, store, schedule.WithLogger(logger))

	form := recurrence.EventForm{
		Title:       "Team meeting",
		Date:        "2025-10-01",
		StartTime:   "09:00",
		EndTime:     "10:00",
		Description: "Weekly sync",
		Location:    "Room A",
		Category:    "work",
		Repeat: recurrence.Repeat{
			Type:     recurrence.FrequencyWeekly,
			Interval: 1,
			EndDate:  mo.Some("2025-10-29"),
		},
		NotificationTime: 10,
	}

	events, err := svc.CreateEvent(ctx, form)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	logger.Info("series created", "series", events[0].SeriesID, "occurrences", len(events))

	// Move the second meeting to the afternoon, it leaves the series
	moved := events[1].EventForm
	moved.StartTime = "14:00"
	moved.EndTime = "15:00"
	if _, err := svc.UpdateOccurrence(ctx, events[1].ID, moved); err != nil {
		return fmt.Errorf("failed to update occurrence: %w", err)
	}

	// Cancel the third one
	if err := svc.DeleteOccurrence(ctx, events[2].ID); err != nil {
		return fmt.Errorf("failed to delete occurrence: %w", err)
	}

	remaining, err := svc.ListEvents(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	for _, ev := range remaining {
		marker := ""
		if ev.IsRepeating() {
			marker = " (repeats)"
		}
		logger.Debug("stored occurrence", "id", ev.ID, "date", ev.Date, "start", ev.StartTime)
		fmt.Fprintf(os.Stderr, "%s %s-%s %s%s\n", ev.Date, ev.StartTime, ev.EndTime, ev.Title, marker)
	}

	loc := cfg.Location()
	switch format {
	case "ics":
		err = ics.Encode(os.Stdout, remaining, loc)
	case "series":
		err = ics.EncodeSeries(os.Stdout, recurrence.Event{ID: "master", EventForm: form}, loc, engine.Config().DefaultEndDate)
	case "xcal":
		err = ics.EncodeXCal(os.Stdout, remaining, loc, engine.Config().DefaultEndDate)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}
