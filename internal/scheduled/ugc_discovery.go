package scheduled

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/instabrain/core/internal/domain"
)

const (
	ugcHighTierScore     = 0.75
	ugcModerateTierScore = 0.45
)

// RunUGCDiscovery searches each active account's monitored hashtags for
// repostable content (media the account is tagged in is not searched),
// scores and tiers every new hit, and
// stages high-tier finds for a permission DM before they're eligible for
// the content scheduler's asset pool. At the end of the cycle it enqueues
// one idempotent sync job per account so the backend can reconcile
// anything the scoring pass missed.
func RunUGCDiscovery(ctx context.Context, d Deps) error {
	runID := newRunID()
	accounts, err := d.Accounts.ActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("op=scheduled.ugc_discovery: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	stats := fanoutAccounts(ctx, accounts, d.Cfg.PipelineFanoutConcurrency, func(acct domain.Account) (bool, bool) {
		return ugcDiscoveryAccount(ctx, d, runID, acct)
	})

	slog.Info("ugc discovery cycle complete",
		slog.Int("processed", stats.Processed), slog.Int("saved", stats.Saved), slog.Int("errors", stats.Errors))
	return nil
}

func ugcDiscoveryAccount(ctx context.Context, d Deps, runID string, acct domain.Account) (ok bool, usedLLM bool) {
	if len(acct.MonitoredHashtags) == 0 {
		return true, false
	}

	var candidates []map[string]any
	for _, tag := range acct.MonitoredHashtags {
		result, err := d.Backend.Get(ctx, acct.Ref, "/api/instagram/hashtag-search", map[string]string{"hashtag": tag})
		if err != nil {
			slog.Error("ugc discovery: hashtag search failed", slog.String("account_ref", acct.Ref), slog.String("hashtag", tag), slog.Any("error", err))
			continue
		}
		items, _ := result["items"].([]any)
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				candidates = append(candidates, m)
			}
		}
	}

	seenThisCycle := map[string]bool{}
	discovered := 0
	for _, c := range candidates {
		mediaID, _ := c["media_id"].(string)
		if mediaID == "" || seenThisCycle[mediaID] {
			continue
		}
		seenThisCycle[mediaID] = true

		dedupKey := "ugc_discovery:seen:" + acct.Ref + ":" + mediaID
		if _, hit := d.Cache.Get(ctx, dedupKey); hit {
			continue
		}
		exists, err := d.UGC.ExistsBySourceMediaID(ctx, acct.Ref, mediaID)
		if err != nil {
			slog.Error("ugc discovery: exists check failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
			continue
		}
		if exists {
			d.Cache.Set(ctx, dedupKey, "1", 6*time.Hour)
			continue
		}

		score := scoreUGCCandidate(c)
		status := "discovered"
		switch {
		case score >= ugcHighTierScore:
			status = "pending_permission"
		case score >= ugcModerateTierScore:
			status = "discovered"
		default:
			status = "rejected"
		}

		authorHandle, _ := c["author_handle"].(string)
		assetURL, _ := c["asset_url"].(string)
		caption, _ := c["caption"].(string)

		ugcID, err := d.UGC.Create(ctx, domain.UGCRecord{
			AccountRef: acct.Ref, SourceMediaID: mediaID, AuthorHandle: authorHandle,
			AssetURL: assetURL, Caption: caption, Status: status,
		})
		if err != nil {
			slog.Error("ugc discovery: create failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
			continue
		}
		discovered++
		d.Cache.Set(ctx, dedupKey, "1", 6*time.Hour)

		if status == "pending_permission" {
			_, err := d.Queue.Enqueue(ctx, domain.Job{
				Type:           domain.JobTypeSendDM,
				Priority:       domain.PriorityNormal,
				AccountRef:     acct.Ref,
				Endpoint:       "/api/instagram/reply-dm",
				Source:         "scheduler:ugc_discovery",
				IdempotencyKey: "ugc_discovery:permission_dm:" + ugcID,
				Payload:        map[string]any{"ugc_id": ugcID, "author_handle": authorHandle, "intent": "ugc_permission_request"},
			})
			if err != nil {
				slog.Error("ugc discovery: enqueue permission dm failed", slog.String("ugc_id", ugcID), slog.Any("error", err))
			}
		}

		ugcDiscoveryAudit(ctx, d, runID, acct.Ref, "discovered", ugcID, map[string]any{"score": score, "status": status})
	}

	syncKey := fmt.Sprintf("sync_ugc:%s:%s", acct.Ref, time.Now().UTC().Format("2006010215"))
	if _, err := d.Queue.Enqueue(ctx, domain.Job{
		Type:           domain.JobTypeSyncUGC,
		Priority:       domain.PriorityNormal,
		AccountRef:     acct.Ref,
		Endpoint:       "/api/instagram/sync-ugc",
		Source:         "scheduler:ugc_discovery",
		IdempotencyKey: syncKey,
		Payload:        map[string]any{"discovered_this_cycle": discovered},
	}); err != nil {
		slog.Error("ugc discovery: enqueue sync failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
	}

	return true, false
}

// scoreUGCCandidate is a rule-based score over the engagement fields the
// backend's hashtag search response carries: engagement (likes plus twice
// the comments, saturating at 500) weighted 0.35, author reach (followers,
// saturating at 10,000) weighted 0.25, a brand mention weighted 0.25, and a
// fixed 0.15 base. Caption content, media type and media recency are not
// scored.
func scoreUGCCandidate(c map[string]any) float64 {
	likes, _ := c["like_count"].(float64)
	comments, _ := c["comment_count"].(float64)
	followers, _ := c["author_follower_count"].(float64)
	hasBrandMention, _ := c["mentions_brand"].(bool)

	engagement := likes + comments*2
	engagementScore := clamp01(engagement / 500.0)
	reachScore := clamp01(followers / 10000.0)
	mentionScore := 0.0
	if hasBrandMention {
		mentionScore = 1.0
	}

	return 0.35*engagementScore + 0.25*reachScore + 0.25*mentionScore + 0.15
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ugcDiscoveryAudit(ctx context.Context, d Deps, runID, accountRef, action, ugcID string, extra map[string]any) {
	details := map[string]any{"ugc_id": ugcID}
	for k, v := range extra {
		details[k] = v
	}
	if _, err := d.Audit.Append(ctx, domain.AuditEntry{
		RunID: runID, AccountRef: accountRef, Component: "scheduler:ugc_discovery",
		Action: action, Details: details, CreatedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("ugc discovery: audit append failed", slog.Any("error", err))
	}
}
