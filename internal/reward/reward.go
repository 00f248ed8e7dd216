// Package reward converts per-cycle post engagement into wallet credits.
// Each cycle the content store is asked for every post's gain and curator
// set; the gain is split between the author and the curators and credited
// through the social store.
package reward

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/princekumarofficial/winsome-service/internal/store/content"
)

// GainSource is the slice of the content store the engine consumes.
type GainSource interface {
	CollectCycleGains() []content.CycleGain
}

// WalletCreditor is the slice of the social store the engine consumes.
type WalletCreditor interface {
	CreditWallet(username string, amount float64) error
}

// Publisher receives successful credits for client notification fan-out.
type Publisher interface {
	PublishWalletCredited(username string, amount float64)
}

// Engine is the periodic reward distributor.
type Engine struct {
	gains       GainSource
	wallets     WalletCreditor
	publisher   Publisher
	interval    time.Duration
	authorShare float64
	logger      *slog.Logger
}

// New creates an engine splitting each gain by authorShare (the rest is
// shared equally among curators). publisher may be nil.
func New(gains GainSource, wallets WalletCreditor, publisher Publisher, interval time.Duration, authorShare float64) *Engine {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &Engine{
		gains:       gains,
		wallets:     wallets,
		publisher:   publisher,
		interval:    interval,
		authorShare: authorShare,
		logger:      logger,
	}
}

func (e *Engine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("Reward engine started",
		"interval", e.interval.String(),
		"author_share", e.authorShare)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Reward engine shutting down")
			return
		case <-ticker.C:
			e.RunCycle()
		}
	}
}

// RunCycle executes one scoring pass. A failed credit means an internal
// inconsistency (the content store referenced a user the social store does
// not have); it is logged loudly and skipped rather than taking the process
// down with it.
func (e *Engine) RunCycle() {
	startTime := time.Now()

	gains := e.gains.CollectCycleGains()

	var distributed float64
	var credited int
	for _, g := range gains {
		if g.Gain <= 0 {
			continue
		}

		authorAmount := g.Gain * e.authorShare
		if len(g.Curators) == 0 {
			// No curators should imply no gain; keep the money with the
			// author instead of dropping it if that invariant ever breaks.
			authorAmount = g.Gain
		}

		e.credit(g.Author, authorAmount, g.PostID)
		distributed += authorAmount

		if len(g.Curators) > 0 {
			curatorAmount := g.Gain * (1 - e.authorShare) / float64(len(g.Curators))
			for _, curator := range g.Curators {
				e.credit(curator, curatorAmount, g.PostID)
				distributed += curatorAmount
			}
		}
		credited++
	}

	e.logger.Info("Completed reward cycle",
		"posts_scored", len(gains),
		"posts_rewarded", credited,
		"total_distributed", distributed,
		"duration_ms", time.Since(startTime).Milliseconds())
}

func (e *Engine) credit(username string, amount float64, postID int64) {
	if err := e.wallets.CreditWallet(username, amount); err != nil {
		e.logger.Error("Failed to credit wallet, state may be inconsistent",
			"username", username,
			"post_id", postID,
			"amount", amount,
			"error", err.Error())
		return
	}
	if e.publisher != nil {
		e.publisher.PublishWalletCredited(username, amount)
	}
}
