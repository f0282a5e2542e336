package scheduled

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// engagementAutoReplyConfidence is the minimum confidence the model must
// report before an auto-reply is sent unattended; anything below it is
// escalated for human review instead of risking a bad reply.
const engagementAutoReplyConfidence = 0.6

// engagementMonitorSystemPrompt frames the comment-triage decision for the
// model: reply, escalate, or skip.
const engagementMonitorSystemPrompt = `You triage Instagram comments left unprocessed by the real-time webhook path.
Respond with JSON: {"action":"reply"|"escalate"|"skip","reply_text":"...","confidence":0-1,"reasoning":"..."}.`

// RunEngagementMonitor catches up on any comment the webhook path never
// reliably saw delivered: it drains each active account's unprocessed
// backlog, dedups against the hot cache, and routes every comment to an
// auto-reply, an escalation, or a skip — exactly as the real-time comment
// webhook would, just on a delay.
func RunEngagementMonitor(ctx context.Context, d Deps) error {
	runID := newRunID()
	accounts, err := d.Accounts.ActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("op=scheduled.engagement_monitor: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	lookback := time.Now().Add(-24 * time.Hour)
	stats := fanoutAccounts(ctx, accounts, d.Cfg.PipelineFanoutConcurrency, func(acct domain.Account) (bool, bool) {
		return engagementMonitorAccount(ctx, d, runID, acct, lookback)
	})

	slog.Info("engagement monitor cycle complete",
		slog.Int("processed", stats.Processed), slog.Int("saved", stats.Saved),
		slog.Int("llm_used", stats.LLMUsed), slog.Int("errors", stats.Errors))
	return nil
}

func engagementMonitorAccount(ctx context.Context, d Deps, runID string, acct domain.Account, since time.Time) (ok bool, usedLLM bool) {
	comments, err := d.Comments.UnprocessedSince(ctx, acct.Ref, since, 100)
	if err != nil {
		slog.Error("engagement monitor: fetch backlog failed", slog.String("account_ref", acct.Ref), slog.Any("error", err))
		return false, false
	}

	anyLLM := false
	for _, c := range comments {
		dedupKey := "engagement_monitor:processed:" + c.ID
		if _, hit := d.Cache.Get(ctx, dedupKey); hit {
			_ = d.Comments.MarkProcessed(ctx, c.ID)
			continue
		}

		if !acct.EngagementAutoReplyOn {
			engagementAudit(ctx, d, runID, acct.Ref, "skipped_auto_reply_off", c.ID, nil)
			d.Cache.Set(ctx, dedupKey, "1", 24*time.Hour)
			_ = d.Comments.MarkProcessed(ctx, c.ID)
			continue
		}

		userPrompt := fmt.Sprintf("Comment from @%s on media %s: %q", c.Username, c.MediaID, c.Text)
		resp, err := d.Gateway.Analyze(ctx, engagementMonitorSystemPrompt, userPrompt)
		anyLLM = true
		if err != nil {
			slog.Error("engagement monitor: analyze failed", slog.String("account_ref", acct.Ref), slog.String("comment_id", c.ID), slog.Any("error", err))
			engagementAudit(ctx, d, runID, acct.Ref, "analyze_failed", c.ID, map[string]any{"error": err.Error()})
			continue
		}

		action, _ := resp.JSON["action"].(string)
		confidence, _ := resp.JSON["confidence"].(float64)

		switch {
		case action == "reply" && confidence >= engagementAutoReplyConfidence:
			replyText, _ := resp.JSON["reply_text"].(string)
			_, enqErr := d.Queue.Enqueue(ctx, domain.Job{
				Type:           domain.JobTypeReplyToComment,
				Priority:       domain.PriorityNormal,
				AccountRef:     acct.Ref,
				Endpoint:       "/api/instagram/reply-comment",
				Source:         "scheduler:engagement_monitor",
				IdempotencyKey: "engagement_monitor:reply:" + c.ID,
				Payload:        map[string]any{"comment_id": c.ID, "media_id": c.MediaID, "reply_text": replyText},
			})
			if enqErr != nil {
				slog.Error("engagement monitor: enqueue reply failed", slog.String("account_ref", acct.Ref), slog.Any("error", enqErr))
			}
			engagementAudit(ctx, d, runID, acct.Ref, "auto_replied", c.ID, map[string]any{"confidence": confidence})
		default:
			needsHuman := action == "escalate" || confidence < engagementAutoReplyConfidence
			engagementAudit(ctx, d, runID, acct.Ref, "escalated_or_skipped", c.ID, map[string]any{"action": action, "confidence": confidence, "needs_human": needsHuman})
		}

		d.Cache.Set(ctx, dedupKey, "1", 24*time.Hour)
		if err := d.Comments.MarkProcessed(ctx, c.ID); err != nil {
			slog.Error("engagement monitor: mark processed failed", slog.String("comment_id", c.ID), slog.Any("error", err))
		}
	}
	return true, anyLLM
}

func engagementAudit(ctx context.Context, d Deps, runID, accountRef, action, commentID string, extra map[string]any) {
	details := map[string]any{"comment_id": commentID}
	for k, v := range extra {
		details[k] = v
	}
	needsHuman, _ := extra["needs_human"].(bool)
	if _, err := d.Audit.Append(ctx, domain.AuditEntry{
		RunID: runID, AccountRef: accountRef, Component: "scheduler:engagement_monitor",
		Action: action, Details: details, NeedsHuman: needsHuman, CreatedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("engagement monitor: audit append failed", slog.Any("error", err))
	}
}
