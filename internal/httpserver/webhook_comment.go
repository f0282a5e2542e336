package httpserver

import (
	"fmt"
	"time"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/pipeline"
)

// commentEvent is the parsed shape of a comment webhook payload.
// domain.Comment has no account_ref field (it's a single-account view from
// the store's perspective); the webhook envelope always carries one, so it
// is tracked alongside rather than added to the shared entity.
type commentEvent struct {
	domain.Comment
	AccountRef string
}

func parseCommentPayload(raw map[string]any) (commentEvent, error) {
	id, _ := raw["comment_id"].(string)
	if id == "" {
		id, _ = raw["id"].(string)
	}
	accountRef, _ := raw["account_ref"].(string)
	if id == "" || accountRef == "" {
		return commentEvent{}, fmt.Errorf("comment payload missing comment_id/account_ref")
	}
	text, _ := raw["text"].(string)
	mediaID, _ := raw["media_id"].(string)
	username, _ := raw["username"].(string)

	return commentEvent{
		Comment: domain.Comment{
			ID:        id,
			MediaID:   mediaID,
			Text:      text,
			Username:  username,
			Timestamp: parseWebhookTimestamp(raw["timestamp"]),
		},
		AccountRef: accountRef,
	}, nil
}

func parseWebhookTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	case float64:
		return time.Unix(int64(t), 0).UTC()
	}
	return time.Now().UTC()
}

// newCommentWebhookConfig wires the generic WebhookConfig to comment-specific
// hooks. Comment hard rules are none per the §4.7 table — the model alone
// decides whether to reply, escalate, or stay silent.
func newCommentWebhookConfig(s *Server) pipeline.WebhookConfig[commentEvent] {
	return pipeline.WebhookConfig[commentEvent]{
		MessageType:   "comment",
		ParsePayload:  parseCommentPayload,
		GetResourceID: func(e commentEvent) string { return e.ID },
		GetUserID:     func(e commentEvent) string { return e.AccountRef },
		FetchContext: func(ctx domain.Context, e commentEvent) (map[string]any, error) {
			account, err := s.Accounts.Get(ctx, e.AccountRef)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"account":           account,
				"comment_text":      e.Text,
				"commenter_handle":  e.Username,
			}, nil
		},
		BuildAnalysisInput: func(e commentEvent, ctxData map[string]any) (string, string) {
			system := "You moderate Instagram comments for an automated business account. " +
				"Classify intent and draft a reply if one is warranted. Respond as JSON with keys " +
				"reply_text, needs_human, escalation_reason."
			user := fmt.Sprintf("Comment from @%s: %q", e.Username, e.Text)
			return system, user
		},
		BuildResponse: func(e commentEvent, analysis map[string]any) map[string]any {
			return map[string]any{"processed": true, "comment_id": e.ID}
		},
		ExecuteReply: func(ctx domain.Context, e commentEvent, analysis map[string]any) (map[string]any, error) {
			replyText, _ := analysis["reply_text"].(string)
			if replyText == "" {
				return map[string]any{"executed": false, "reason": "no_reply_text"}, nil
			}
			jobID, err := s.Queue.Enqueue(ctx, domain.Job{
				Type:       domain.JobTypeReplyToComment,
				Priority:   domain.PriorityHigh,
				AccountRef: e.AccountRef,
				Payload: map[string]any{
					"account_ref": e.AccountRef,
					"comment_id":  e.ID,
					"text":        replyText,
				},
				Endpoint: "/api/instagram/reply-comment",
				Source:   "webhook:comment",
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"executed": true, "job_id": jobID}, nil
		},
		BuildAuditDetails: func(e commentEvent, analysis, execResult map[string]any, latencyMs int64) map[string]any {
			return map[string]any{"latency_ms": latencyMs, "media_id": e.MediaID}
		},
	}
}
