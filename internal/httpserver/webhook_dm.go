package httpserver

import (
	"fmt"
	"time"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/pipeline"
)

// dmWindow is Instagram's messaging-window policy: a business account may
// only send a freeform reply within 24h of the customer's last message.
const dmWindow = 24 * time.Hour

type dmEvent struct {
	domain.DirectMessage
	AccountRef string
}

func parseDMPayload(raw map[string]any) (dmEvent, error) {
	conversationID, _ := raw["conversation_id"].(string)
	accountRef, _ := raw["account_ref"].(string)
	if conversationID == "" || accountRef == "" {
		return dmEvent{}, fmt.Errorf("dm payload missing conversation_id/account_ref")
	}
	text, _ := raw["text"].(string)
	senderID, _ := raw["sender_id"].(string)

	var attachments []string
	if raw, ok := raw["attachments"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				attachments = append(attachments, s)
			}
		}
	}

	return dmEvent{
		DirectMessage: domain.DirectMessage{
			ConversationID: conversationID,
			SenderID:       senderID,
			Text:           text,
			Attachments:    attachments,
			Timestamp:      parseWebhookTimestamp(raw["timestamp"]),
		},
		AccountRef: accountRef,
	}, nil
}

// newDMWebhookConfig wires the generic WebhookConfig to DM-specific hooks:
// a media attachment always escalates to a human, an empty text body is
// silently skipped, and the 24h messaging window is re-checked right before
// sending since conversation state can change between analysis and action.
func newDMWebhookConfig(s *Server) pipeline.WebhookConfig[dmEvent] {
	return pipeline.WebhookConfig[dmEvent]{
		MessageType:   "dm",
		ParsePayload:  parseDMPayload,
		GetResourceID: func(e dmEvent) string { return e.ConversationID },
		GetUserID:     func(e dmEvent) string { return e.AccountRef },
		HardRules: func(e dmEvent) *pipeline.HardRuleOutcome {
			if len(e.Attachments) > 0 {
				return &pipeline.HardRuleOutcome{
					Action:       "escalated",
					Response:     map[string]any{"processed": false, "execution": map[string]any{"executed": false, "reason": "attachment_requires_human"}},
					AuditDetails: map[string]any{"rule": "attachment_present"},
				}
			}
			if e.Text == "" {
				return &pipeline.HardRuleOutcome{
					Action:       "ignored_empty_message",
					Response:     map[string]any{"processed": false, "execution": map[string]any{"executed": false, "reason": "empty_text"}},
					AuditDetails: map[string]any{"rule": "empty_text"},
				}
			}
			return nil
		},
		FetchContext: func(ctx domain.Context, e dmEvent) (map[string]any, error) {
			account, err := s.Accounts.Get(ctx, e.AccountRef)
			if err != nil {
				return nil, err
			}
			return map[string]any{"account": account, "message_text": e.Text}, nil
		},
		BuildAnalysisInput: func(e dmEvent, ctxData map[string]any) (string, string) {
			system := "You handle Instagram direct messages for an automated business account. " +
				"Draft a reply if appropriate. Respond as JSON with keys reply_text, needs_human, escalation_reason."
			user := fmt.Sprintf("DM from %s: %q", e.SenderID, e.Text)
			return system, user
		},
		BuildResponse: func(e dmEvent, analysis map[string]any) map[string]any {
			return map[string]any{"processed": true, "conversation_id": e.ConversationID}
		},
		PreExecuteCheck: func(ctx domain.Context, e dmEvent, analysis map[string]any) (map[string]any, bool, error) {
			if time.Since(e.Timestamp) > dmWindow {
				return map[string]any{"executed": false, "reason": "outside_24h_window"}, true, nil
			}
			return nil, false, nil
		},
		ExecuteReply: func(ctx domain.Context, e dmEvent, analysis map[string]any) (map[string]any, error) {
			replyText, _ := analysis["reply_text"].(string)
			if replyText == "" {
				return map[string]any{"executed": false, "reason": "no_reply_text"}, nil
			}
			jobID, err := s.Queue.Enqueue(ctx, domain.Job{
				Type:       domain.JobTypeReplyToDM,
				Priority:   domain.PriorityHigh,
				AccountRef: e.AccountRef,
				Payload: map[string]any{
					"account_ref":     e.AccountRef,
					"conversation_id": e.ConversationID,
					"text":            replyText,
				},
				Endpoint: "/api/instagram/reply-dm",
				Source:   "webhook:dm",
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"executed": true, "job_id": jobID}, nil
		},
		BuildAuditDetails: func(e dmEvent, analysis, execResult map[string]any, latencyMs int64) map[string]any {
			return map[string]any{"latency_ms": latencyMs}
		},
	}
}
