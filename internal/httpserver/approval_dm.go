package httpserver

import (
	"fmt"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/pipeline"
)

type dmApprovalRequest struct {
	AccountRef     string
	ConversationID string
	MessageText    string
	ProposedReply  string
}

func parseDMApprovalRequest(raw map[string]any) (dmApprovalRequest, error) {
	req := dmApprovalRequest{
		AccountRef:     str(raw["account_ref"]),
		ConversationID: str(raw["conversation_id"]),
		MessageText:    str(raw["message_text"]),
		ProposedReply:  str(raw["proposed_reply"]),
	}
	if req.AccountRef == "" || req.ConversationID == "" || req.ProposedReply == "" {
		return dmApprovalRequest{}, fmt.Errorf("account_ref, conversation_id and proposed_reply are required")
	}
	return req, nil
}

func newDMApprovalConfig(s *Server) pipeline.ApprovalConfig[dmApprovalRequest] {
	return pipeline.ApprovalConfig[dmApprovalRequest]{
		TaskType:        "dm",
		EventType:       "dm_reply_approval",
		AnalysisFactors: []string{"tone", "policy_compliance", "privacy"},
		ContextUsed:     []string{"account", "conversation"},
		PromptVersion:   "v1",
		SystemPrompt: "You review a proposed Instagram DM reply before it is sent. " +
			"Respond as JSON with keys approved (bool) and reason.",
		GetResourceID: func(req dmApprovalRequest) string { return req.ConversationID },
		GetUserID:     func(req dmApprovalRequest) string { return req.AccountRef },
		FetchContext: func(ctx domain.Context, req dmApprovalRequest) (map[string]any, error) {
			account, err := s.Accounts.Get(ctx, req.AccountRef)
			if err != nil {
				return nil, err
			}
			return map[string]any{"account": account}, nil
		},
		BuildPrompt: func(req dmApprovalRequest, ctxData map[string]any) string {
			return fmt.Sprintf("DM thread: %q\nProposed reply: %q", req.MessageText, req.ProposedReply)
		},
		BuildResponse: func(req dmApprovalRequest, analysis map[string]any, latencyMs int64, tools []string) map[string]any {
			approved, _ := analysis["approved"].(bool)
			return map[string]any{"approved": approved, "reason": analysis["reason"]}
		},
		BuildAuditDetails: func(req dmApprovalRequest, analysis map[string]any, latencyMs int64) map[string]any {
			return map[string]any{"latency_ms": latencyMs, "proposed_reply": req.ProposedReply}
		},
	}
}
