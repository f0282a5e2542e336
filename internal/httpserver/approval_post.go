package httpserver

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/pipeline"
)

const (
	maxCaptionLength = 2200
	maxHashtagCount  = 10
)

type postApprovalRequest struct {
	AccountRef      string
	ScheduledPostID string
	Caption         string
	AssetRef        string
}

func parsePostApprovalRequest(raw map[string]any) (postApprovalRequest, error) {
	req := postApprovalRequest{
		AccountRef:      str(raw["account_ref"]),
		ScheduledPostID: str(raw["scheduled_post_id"]),
		Caption:         str(raw["caption"]),
		AssetRef:        str(raw["asset_ref"]),
	}
	if req.AccountRef == "" || req.ScheduledPostID == "" {
		return postApprovalRequest{}, fmt.Errorf("account_ref and scheduled_post_id are required")
	}
	return req, nil
}

func countHashtags(caption string) int {
	n := 0
	for _, word := range strings.Fields(caption) {
		if strings.HasPrefix(word, "#") {
			n++
		}
	}
	return n
}

// newPostApprovalConfig wires caption-length and hashtag-count hard rules
// (2200 chars / 10 hashtags, per the platform's own publishing limits) ahead
// of the LLM brand-voice review, so a clearly invalid post never reaches the
// model.
func newPostApprovalConfig(s *Server) pipeline.ApprovalConfig[postApprovalRequest] {
	return pipeline.ApprovalConfig[postApprovalRequest]{
		TaskType:        "post",
		EventType:       "post_approval",
		AnalysisFactors: []string{"brand_voice", "caption_quality"},
		ContextUsed:     []string{"account", "scheduled_post"},
		PromptVersion:   "v1",
		SystemPrompt: "You review a scheduled Instagram post caption before publication. " +
			"Respond as JSON with keys approved (bool) and reason.",
		GetResourceID: func(req postApprovalRequest) string { return req.ScheduledPostID },
		GetUserID:     func(req postApprovalRequest) string { return req.AccountRef },
		HardRules: func(req postApprovalRequest) *pipeline.HardRuleOutcome {
			if n := utf8.RuneCountInString(req.Caption); n > maxCaptionLength {
				return &pipeline.HardRuleOutcome{
					Action:       "rejected",
					Response:     map[string]any{"approved": false, "reason": "caption_too_long"},
					AuditDetails: map[string]any{"rule": "caption_length", "length": n},
				}
			}
			if n := countHashtags(req.Caption); n > maxHashtagCount {
				return &pipeline.HardRuleOutcome{
					Action:       "rejected",
					Response:     map[string]any{"approved": false, "reason": "too_many_hashtags"},
					AuditDetails: map[string]any{"rule": "hashtag_count", "count": n},
				}
			}
			return nil
		},
		FetchContext: func(ctx domain.Context, req postApprovalRequest) (map[string]any, error) {
			account, err := s.Accounts.Get(ctx, req.AccountRef)
			if err != nil {
				return nil, err
			}
			return map[string]any{"account": account}, nil
		},
		BuildPrompt: func(req postApprovalRequest, ctxData map[string]any) string {
			return fmt.Sprintf("Caption: %q", req.Caption)
		},
		BuildResponse: func(req postApprovalRequest, analysis map[string]any, latencyMs int64, tools []string) map[string]any {
			approved, _ := analysis["approved"].(bool)
			return map[string]any{"approved": approved, "reason": analysis["reason"]}
		},
		BuildAuditDetails: func(req postApprovalRequest, analysis map[string]any, latencyMs int64) map[string]any {
			return map[string]any{"latency_ms": latencyMs, "caption_length": len(req.Caption)}
		},
	}
}
