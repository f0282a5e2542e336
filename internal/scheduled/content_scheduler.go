package scheduled

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/instabrain/core/internal/domain"
)

const (
	contentSchedulerAssetPoolLimit = 20
	contentSchedulerTopFraction    = 0.3 // weighted-random pick from the top 30% scored assets
	contentMaxHashtags             = 10
	contentMaxCaptionLen           = 2200
	contentMinQualityScore         = 0.5
)

// contentSchedulerSystemPrompt asks the model for a caption plus a
// self-reported quality score the hard rules gate on.
const contentSchedulerSystemPrompt = `You write an Instagram repost caption for a piece of approved user-generated content.
Respond with JSON: {"caption":"...","hashtags":["..."],"quality_score":0-1,"reasoning":"..."}.`

// RunContentScheduler picks one approved UGC asset per active account and
// creates a scheduled post for it; the publish job is enqueued only for
// accounts with AutoPublishOn. Each registered fire time is its own
// MultiTrigger leg, so one cycle posts at most once per account.
func RunContentScheduler(ctx context.Context, d Deps) error {
	runID := newRunID()
	accounts, err := d.Accounts.ActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("op=scheduled.content_scheduler: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	stats := fanoutAccounts(ctx, accounts, d.Cfg.PipelineFanoutConcurrency, func(acct domain.Account) (bool, bool) {
		return contentSchedulerAccount(ctx, d, runID, acct)
	})

	slog.Info("content scheduler cycle complete",
		slog.Int("processed", stats.Processed), slog.Int("saved", stats.Saved),
		slog.Int("llm_used", stats.LLMUsed), slog.Int("errors", stats.Errors))
	return nil
}

func contentSchedulerAccount(ctx context.Context, d Deps, runID string, acct domain.Account) (ok bool, usedLLM bool) {
	pool, err := d.UGC.ApprovedByAccount(ctx, acct.Ref, contentSchedulerAssetPoolLimit)
	if err != nil {
		slog.Error("content scheduler: asset pool fetch failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		return false, false
	}
	if len(pool) == 0 {
		return true, false
	}

	asset := selectWeightedAsset(ctx, d, acct.Ref, pool)
	d.Cache.Set(ctx, fmt.Sprintf("content_scheduler:recent_author:%s:%s", acct.Ref, asset.AuthorHandle), "1", 24*time.Hour)

	userPrompt := fmt.Sprintf("Original caption: %q. Author: @%s.", asset.Caption, asset.AuthorHandle)
	resp, err := d.Gateway.Analyze(ctx, contentSchedulerSystemPrompt, userPrompt)
	if err != nil {
		slog.Error("content scheduler: analyze failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		contentAudit(ctx, d, runID, acct.Ref, "analyze_failed", asset.ID, map[string]any{"error": err.Error()})
		return false, true
	}

	caption, _ := resp.JSON["caption"].(string)
	quality, _ := resp.JSON["quality_score"].(float64)
	hashtags := toStringSlice(resp.JSON["hashtags"])

	if len(hashtags) > contentMaxHashtags || len(caption) > contentMaxCaptionLen || quality < contentMinQualityScore {
		contentAudit(ctx, d, runID, acct.Ref, "rejected_hard_rules", asset.ID, map[string]any{
			"hashtag_count": len(hashtags), "caption_len": len(caption), "quality_score": quality,
		})
		return true, true
	}

	postID, err := d.ScheduledPosts.Create(ctx, domain.ScheduledPost{
		AccountRef:  acct.Ref,
		AssetRef:    asset.AssetURL,
		Caption:     caption,
		Status:      "scheduled",
		ScheduledAt: time.Now().UTC(),
		SourceUGCID: &asset.ID,
	})
	if err != nil {
		slog.Error("content scheduler: create scheduled post failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		return false, true
	}

	if acct.AutoPublishOn {
		if err := d.ScheduledPosts.UpdateStatus(ctx, postID, "publishing"); err != nil {
			slog.Error("content scheduler: update status failed", slog.String("post_id", postID), slog.Any("error", err))
		}
		_, err := d.Queue.Enqueue(ctx, domain.Job{
			Type:           domain.JobTypePublishPost,
			Priority:       domain.PriorityNormal,
			AccountRef:     acct.Ref,
			Endpoint:       "/api/instagram/publish-post",
			Source:         "scheduler:content_scheduler",
			IdempotencyKey: "content_scheduler:publish:" + postID,
			Payload:        map[string]any{"scheduled_post_id": postID, "asset_ref": asset.AssetURL, "caption": caption},
		})
		if err != nil {
			slog.Error("content scheduler: enqueue publish failed", slog.String("post_id", postID), slog.Any("error", err))
		}
	}

	contentAudit(ctx, d, runID, acct.Ref, "scheduled", asset.ID, map[string]any{"post_id": postID, "auto_publish": acct.AutoPublishOn})
	return true, true
}

// selectWeightedAsset scores every asset in the pool, keeps the top
// contentSchedulerTopFraction by score, and picks one at random weighted by
// score — favoring (but not always choosing) the highest-scored candidate.
// There is no per-post performance store or per-account recent-post history
// in this domain yet, so the historical-performance and diversity factors
// fall back to an age-based approximation and a per-author flag in the
// shared cache.
func selectWeightedAsset(ctx context.Context, d Deps, accountRef string, pool []domain.UGCRecord) domain.UGCRecord {
	type scored struct {
		asset domain.UGCRecord
		score float64
	}
	scoredAssets := make([]scored, len(pool))
	for i, a := range pool {
		scoredAssets[i] = scored{asset: a, score: scoreAsset(ctx, d, accountRef, a)}
	}

	// simple insertion sort descending by score; pool sizes are small (<=20)
	for i := 1; i < len(scoredAssets); i++ {
		for j := i; j > 0 && scoredAssets[j].score > scoredAssets[j-1].score; j-- {
			scoredAssets[j], scoredAssets[j-1] = scoredAssets[j-1], scoredAssets[j]
		}
	}

	topN := int(math.Ceil(float64(len(scoredAssets)) * contentSchedulerTopFraction))
	if topN < 1 {
		topN = 1
	}
	top := scoredAssets[:topN]

	var total float64
	for _, s := range top {
		total += s.score + 0.01 // avoid a zero-weight asset never being pickable
	}
	r := rand.Float64() * total //nolint:gosec // asset selection, not a security decision
	var cursor float64
	for _, s := range top {
		cursor += s.score + 0.01
		if r <= cursor {
			return s.asset
		}
	}
	return top[0].asset
}

// scoreAsset approximates the original's freshness/recency/performance/
// diversity weighting with the two signals this domain can actually
// compute: discovery age (newer scores higher) and author diversity via
// the shared cache (an author picked in the last 24h gets a small penalty).
func scoreAsset(ctx context.Context, d Deps, accountRef string, a domain.UGCRecord) float64 {
	age := time.Since(a.DiscoveredAt)
	freshness := 1.0 / (1.0 + age.Hours()/168.0) // decays over a week

	diversityPenalty := 0.0
	key := fmt.Sprintf("content_scheduler:recent_author:%s:%s", accountRef, a.AuthorHandle)
	if _, used := d.Cache.Get(ctx, key); used {
		diversityPenalty = 0.3
	}

	const historicalPerformanceDefault = 0.5
	return 0.4*freshness + 0.3*historicalPerformanceDefault + 0.3*(1-diversityPenalty)
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func contentAudit(ctx context.Context, d Deps, runID, accountRef, action, ugcID string, extra map[string]any) {
	details := map[string]any{"ugc_id": ugcID}
	for k, v := range extra {
		details[k] = v
	}
	if _, err := d.Audit.Append(ctx, domain.AuditEntry{
		RunID: runID, AccountRef: accountRef, Component: "scheduler:content_scheduler",
		Action: action, Details: details, CreatedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("content scheduler: audit append failed", slog.Any("error", err))
	}
}
