package scheduled

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// defaultAttributionWeights is what a fresh account (no prior learned
// weights) starts from — last-touch weighted heaviest since it's the
// cheapest signal to trust without history.
var defaultAttributionWeights = map[string]float64{
	"last_touch":  0.40,
	"first_touch": 0.20,
	"linear":      0.20,
	"time_decay":  0.20,
}

const weeklyLearningBlendNew = 0.70 // new cycle's computed weights vs prior version, blended 70/30

// RunWeeklyAttributionLearning recomputes each account's per-channel
// attribution weights from the last 7 days of orders, blends them against
// the prior version instead of replacing it outright, and appends a new
// weights version — the prior version stays queryable for reproducing
// historical attribution.
func RunWeeklyAttributionLearning(ctx context.Context, d Deps) error {
	runID := newRunID()
	accounts, err := d.Accounts.ActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("op=scheduled.weekly_attribution_learning: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	since := time.Now().Add(-7 * 24 * time.Hour)
	stats := fanoutAccounts(ctx, accounts, d.Cfg.PipelineFanoutConcurrency, func(acct domain.Account) (bool, bool) {
		return weeklyLearningAccount(ctx, d, runID, acct, since)
	})

	slog.Info("weekly attribution learning cycle complete",
		slog.Int("processed", stats.Processed), slog.Int("saved", stats.Saved), slog.Int("errors", stats.Errors))
	return nil
}

func weeklyLearningAccount(ctx context.Context, d Deps, runID string, acct domain.Account, since time.Time) (ok bool, usedLLM bool) {
	records, err := d.Attribution.RecentByAccount(ctx, acct.Ref, since)
	if err != nil {
		slog.Error("weekly learning: fetch records failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		return false, false
	}
	if len(records) == 0 {
		return true, false
	}

	computed := computeChannelWeights(records)

	prior, err := d.Attribution.LatestWeights(ctx)
	notFound := errors.Is(err, domain.ErrNotFound)
	if err != nil && !notFound {
		slog.Error("weekly learning: fetch prior weights failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		return false, false
	}
	base := defaultAttributionWeights
	nextVersion := 1
	if !notFound {
		base = prior.Weights
		nextVersion = prior.Version + 1
	}

	blended := blendWeights(computed, base, weeklyLearningBlendNew)

	if err := d.Attribution.SaveWeights(ctx, domain.AttributionModelWeights{
		Version: nextVersion, Weights: blended, ComputedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("weekly learning: save weights failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		return false, false
	}

	d.Cache.Invalidate(ctx, "attribution:weights:latest")

	if _, err := d.Audit.Append(ctx, domain.AuditEntry{
		RunID: runID, AccountRef: acct.Ref, Component: "scheduler:weekly_attribution_learning",
		Action: "weights_updated", Details: map[string]any{"version": nextVersion, "record_count": len(records), "weights": blended},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("weekly learning: audit append failed", slog.Any("error", err))
	}
	return true, false
}

// computeChannelWeights averages each channel's touchpoint weight across
// every record's touchpoints, then normalizes so the result sums to 1.0.
func computeChannelWeights(records []domain.AttributionRecord) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range records {
		for _, tp := range rec.Touchpoints {
			sums[tp.Channel] += tp.Weight
			counts[tp.Channel]++
		}
	}

	avgs := map[string]float64{}
	var total float64
	for ch, sum := range sums {
		avg := sum / float64(counts[ch])
		avgs[ch] = avg
		total += avg
	}
	if total == 0 {
		return defaultAttributionWeights
	}
	for ch := range avgs {
		avgs[ch] /= total
	}
	return avgs
}

// blendWeights combines newly-computed weights with the prior version,
// weighting the new computation at newWeight and the prior at 1-newWeight,
// then renormalizes so the result still sums to 1.0.
func blendWeights(computed, prior map[string]float64, newWeight float64) map[string]float64 {
	keys := map[string]bool{}
	for k := range computed {
		keys[k] = true
	}
	for k := range prior {
		keys[k] = true
	}

	out := map[string]float64{}
	var total float64
	for k := range keys {
		v := newWeight*computed[k] + (1-newWeight)*prior[k]
		out[k] = v
		total += v
	}
	if total == 0 {
		return defaultAttributionWeights
	}
	for k := range out {
		out[k] /= total
	}
	return out
}
