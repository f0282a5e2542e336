package httpserver

import (
	"fmt"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/pipeline"
)

// commentApprovalRequest is the parsed body of POST /approve/comment-reply:
// a caller proposes a reply and asks the gateway to approve or reject it
// before it's queued.
type commentApprovalRequest struct {
	AccountRef    string
	CommentID     string
	CommentText   string
	Username      string
	ProposedReply string
}

func parseCommentApprovalRequest(raw map[string]any) (commentApprovalRequest, error) {
	req := commentApprovalRequest{
		AccountRef:    str(raw["account_ref"]),
		CommentID:     str(raw["comment_id"]),
		CommentText:   str(raw["comment_text"]),
		Username:      str(raw["username"]),
		ProposedReply: str(raw["proposed_reply"]),
	}
	if req.AccountRef == "" || req.CommentID == "" || req.ProposedReply == "" {
		return commentApprovalRequest{}, fmt.Errorf("account_ref, comment_id and proposed_reply are required")
	}
	return req, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func newCommentApprovalConfig(s *Server) pipeline.ApprovalConfig[commentApprovalRequest] {
	return pipeline.ApprovalConfig[commentApprovalRequest]{
		TaskType:        "comment",
		EventType:       "comment_reply_approval",
		AnalysisFactors: []string{"tone", "policy_compliance", "brand_voice"},
		ContextUsed:     []string{"account", "comment"},
		PromptVersion:   "v1",
		SystemPrompt: "You review a proposed Instagram comment reply before it is sent. " +
			"Respond as JSON with keys approved (bool) and reason.",
		GetResourceID: func(req commentApprovalRequest) string { return req.CommentID },
		GetUserID:     func(req commentApprovalRequest) string { return req.AccountRef },
		FetchContext: func(ctx domain.Context, req commentApprovalRequest) (map[string]any, error) {
			account, err := s.Accounts.Get(ctx, req.AccountRef)
			if err != nil {
				return nil, err
			}
			return map[string]any{"account": account}, nil
		},
		BuildPrompt: func(req commentApprovalRequest, ctxData map[string]any) string {
			return fmt.Sprintf("Comment from @%s: %q\nProposed reply: %q", req.Username, req.CommentText, req.ProposedReply)
		},
		BuildResponse: func(req commentApprovalRequest, analysis map[string]any, latencyMs int64, tools []string) map[string]any {
			approved, _ := analysis["approved"].(bool)
			return map[string]any{"approved": approved, "reason": analysis["reason"]}
		},
		BuildAuditDetails: func(req commentApprovalRequest, analysis map[string]any, latencyMs int64) map[string]any {
			return map[string]any{"latency_ms": latencyMs, "proposed_reply": req.ProposedReply}
		},
	}
}
