package backup

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Flusher is a store that can persist its pending records.
type Flusher interface {
	Name() string
	Flush() error
}

// Worker periodically flushes the registered stores to disk. On shutdown it
// wakes up and performs one final flush before returning.
type Worker struct {
	flushers []Flusher
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(interval time.Duration, flushers ...Flusher) *Worker {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &Worker{
		flushers: flushers,
		interval: interval,
		logger:   logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Backup worker started",
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Backup worker shutting down, running final flush")
			w.flushAll()
			return
		case <-ticker.C:
			w.flushAll()
		}
	}
}

func (w *Worker) flushAll() {
	startTime := time.Now()

	for _, flusher := range w.flushers {
		if err := flusher.Flush(); err != nil {
			w.logger.Error("Failed to flush store",
				"store", flusher.Name(),
				"error", err.Error())
		}
	}

	w.logger.Info("Completed backup flush",
		"stores", len(w.flushers),
		"duration_ms", time.Since(startTime).Milliseconds())
}
