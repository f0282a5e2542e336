package httpserver

import (
	"net/http"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
	"github.com/instabrain/core/internal/scheduler"
)

// Server aggregates every port, pipeline, and pre-bound route handler a
// router needs. One instance is constructed by NewServer in
// cmd/server/main.go; BuildRouter only ever uses its pre-bound handler
// methods/fields, never reaches back into a concrete pipeline type — that
// keeps every per-route generic instantiation (ApprovalRunner[commentApprovalRequest],
// WebhookRunner[dmEvent], ...) local to this package.
type Server struct {
	Cfg config.Config

	Gateway     *llmgateway.Gateway
	Sched       *scheduler.Registry
	Queue       domain.Queue
	Audit       domain.AuditRepository
	Accounts    domain.AccountRepository
	Posts       domain.ScheduledPostRepository
	UGC         domain.UGCRepository
	Attribution domain.AttributionRepository
	OversightCache domain.Cache

	commentApproval http.HandlerFunc
	dmApproval      http.HandlerFunc
	postApproval    http.HandlerFunc
	commentWebhook  http.HandlerFunc
	dmWebhook       http.HandlerFunc
	orderWebhook    http.HandlerFunc
	oversightChat   http.HandlerFunc
	logOutcome      http.HandlerFunc
}

// Deps bundles every port NewServer needs, mirroring the teacher's
// constructor-with-a-deps-struct pattern rather than a long positional arg
// list.
type Deps struct {
	Cfg            config.Config
	Gateway        *llmgateway.Gateway
	Sched          *scheduler.Registry
	Queue          domain.Queue
	Audit          domain.AuditRepository
	Accounts       domain.AccountRepository
	Posts          domain.ScheduledPostRepository
	UGC            domain.UGCRepository
	Attribution    domain.AttributionRepository
	OversightCache domain.Cache
}

// NewServer wires every route handler against the supplied ports. Each
// webhook/approval handler is built from a package-private generic config
// constructor so the generic instantiation never escapes this function.
func NewServer(d Deps) *Server {
	s := &Server{
		Cfg:            d.Cfg,
		Gateway:        d.Gateway,
		Sched:          d.Sched,
		Queue:          d.Queue,
		Audit:          d.Audit,
		Accounts:       d.Accounts,
		Posts:          d.Posts,
		UGC:            d.UGC,
		Attribution:    d.Attribution,
		OversightCache: d.OversightCache,
	}

	s.commentWebhook = newWebhookHandler(newCommentWebhookConfig(s), s.Gateway, s.Audit, s.Cfg.WebhookSecret, s.Cfg.WebhookVerifyToken)
	s.dmWebhook = newWebhookHandler(newDMWebhookConfig(s), s.Gateway, s.Audit, s.Cfg.WebhookSecret, s.Cfg.WebhookVerifyToken)
	s.orderWebhook = s.handleOrderWebhook()

	s.commentApproval = newApprovalHandler(newCommentApprovalConfig(s), s.Gateway, s.Audit, parseCommentApprovalRequest)
	s.dmApproval = newApprovalHandler(newDMApprovalConfig(s), s.Gateway, s.Audit, parseDMApprovalRequest)
	s.postApproval = newApprovalHandler(newPostApprovalConfig(s), s.Gateway, s.Audit, parsePostApprovalRequest)

	s.oversightChat = s.handleOversightChat()
	s.logOutcome = s.handleLogOutcome()

	return s
}
