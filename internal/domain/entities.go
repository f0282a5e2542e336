// Package domain defines core entities, ports, and domain-specific errors
// for the Instagram automation core.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Context is a type alias to stdlib context.Context for convenience across layers.
type Context = context.Context

// JobStatus captures the lifecycle state of an outbound action job.
type JobStatus string

// Job status values.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobDLQ        JobStatus = "dlq"
)

// JobPriority is the lane a job is enqueued into.
type JobPriority string

// Priority lanes.
const (
	PriorityHigh   JobPriority = "high"
	PriorityNormal JobPriority = "normal"
)

// JobType enumerates the outbound actions the queue worker pool knows how to execute.
type JobType string

// Known job types. New action shims register their own type; these are the
// ones the scheduler and webhook/approval pipelines enqueue directly.
const (
	JobTypeReplyToComment  JobType = "reply_to_comment"
	JobTypeReplyToDM       JobType = "reply_to_dm"
	JobTypePublishPost     JobType = "publish_post"
	JobTypeRepostUGC       JobType = "repost_ugc"
	JobTypeSendAnalytics   JobType = "send_analytics_report"
	JobTypeUpdateWeights   JobType = "update_attribution_weights"
	JobTypeHeartbeat       JobType = "send_heartbeat"
	JobTypeSendDM          JobType = "send_dm"  // cold-start DM (UGC permission ask), distinct from a reply
	JobTypeSyncUGC         JobType = "sync_ugc" // reconcile tagged posts at end of a discovery cycle
)

// Job is an outbound action awaiting execution against the backend proxy.
// Invariants: RetryCount increments monotonically; a job in JobDLQ never
// re-enters a priority lane; Payload is immutable once enqueued.
type Job struct {
	ID             string
	Type           JobType
	Priority       JobPriority
	AccountRef     string
	Payload        map[string]any
	IdempotencyKey string
	Endpoint       string // backend proxy path the worker pool posts to
	Source         string // origin subsystem (webhook, scheduler, approval, ...)
	Status         JobStatus
	RetryCount     int
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ScheduledAt    *time.Time // non-nil while sitting in the scheduled-retry ZSET
}

// ScheduledPost represents content queued for future publication.
type ScheduledPost struct {
	ID          string
	AccountRef  string
	AssetRef    string
	Caption     string
	Status      string // draft, scheduled, publishing, published, failed
	ScheduledAt time.Time
	PublishedAt *time.Time
	SourceUGCID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UGCRecord represents a discovered piece of user-generated content eligible for repost.
type UGCRecord struct {
	ID           string
	AccountRef   string
	SourceMediaID string
	AuthorHandle string
	AssetURL     string
	Caption      string
	Status       string // discovered, approved, reposted, rejected
	DiscoveredAt time.Time
}

// AttributionRecord links an order to the touchpoints that preceded it.
type AttributionRecord struct {
	ID          string
	OrderID     string
	AccountRef  string
	Touchpoints []Touchpoint
	ModelWeightsVersion int
	CreatedAt   time.Time
}

// Touchpoint is a single weighted contact point in an attribution chain.
type Touchpoint struct {
	Channel   string // comment, dm, post_click, story_reply
	Timestamp time.Time
	Weight    float64
}

// AttributionModelWeights is the versioned set of per-channel weights used
// when crediting orders to touchpoints. A new version is appended by the
// weekly learning pipeline; the previous version remains readable for
// reproducing historical attribution.
type AttributionModelWeights struct {
	Version    int
	Weights    map[string]float64
	ComputedAt time.Time
}

// AuditEntry is an append-only record of a decision or action taken by the
// system, queried by the oversight explainability component.
type AuditEntry struct {
	ID          string
	RunID       string
	AccountRef  string
	Component   string // webhook:comment, approval:dm, scheduler:content, ...
	Action      string
	Details     map[string]any
	NeedsHuman  bool
	CreatedAt   time.Time
}

// Account is a tracked Instagram business account and its per-account
// feature gates.
type Account struct {
	Ref                   string
	InstagramBusinessID   string
	DisplayName           string
	AccessTokenRef        string
	Active                bool
	EngagementAutoReplyOn bool
	AutoPublishOn         bool
	AutoRepostOn          bool
	MonitoredHashtags     []string
	CreatedAt             time.Time
}

// Comment is a webhook-delivered Instagram comment event.
type Comment struct {
	ID        string
	MediaID   string
	Text      string
	Username  string
	Timestamp time.Time
}

// DirectMessage is a webhook-delivered Instagram DM event.
type DirectMessage struct {
	ConversationID string
	SenderID       string
	Text           string
	Attachments    []string
	Timestamp      time.Time
}

// Order is a webhook-delivered storefront order event.
type Order struct {
	OrderID      string
	Email        string
	TotalValue   float64
	Currency     string
	UTMSource    string
	DiscountCode string
	Items        []string
	CreatedAt    time.Time
}

// PromptTemplate is a named, versioned prompt body loaded once at startup.
type PromptTemplate struct {
	Key      string
	Version  int
	Body     string
	IsActive bool
}

// InboundComment is a platform comment captured for the engagement
// monitor's batch catch-up pass. It is a separate record from the
// webhook path's real-time commentEvent: not every comment reliably
// reaches the system as a webhook delivery, so the monitor polls any
// still-unprocessed rows left behind.
type InboundComment struct {
	ID         string
	AccountRef string
	MediaID    string
	Text       string
	Username   string
	Timestamp  time.Time
	CreatedAt  time.Time
}

// Repositories (ports) — the Store Client.

// JobRepository manages the durable record of outbound action jobs.
// Implementations wrap every call with retry + circuit breaker semantics
// per the store client design; callers see a plain error.
type JobRepository interface {
	Create(ctx Context, j Job) (string, error)
	UpdateStatus(ctx Context, id string, status JobStatus, errMsg *string) error
	IncrementRetry(ctx Context, id string, errMsg string) error
	Get(ctx Context, id string) (Job, error)
	FindByIdempotencyKey(ctx Context, key string) (Job, error)
	Count(ctx Context) (int64, error)
	CountByStatus(ctx Context, status JobStatus) (int64, error)
}

// ScheduledPostRepository manages scheduled post rows.
type ScheduledPostRepository interface {
	Create(ctx Context, p ScheduledPost) (string, error)
	UpdateStatus(ctx Context, id, status string) error
	Get(ctx Context, id string) (ScheduledPost, error)
	DuePosts(ctx Context, before time.Time) ([]ScheduledPost, error)
}

// UGCRepository manages discovered UGC rows.
type UGCRepository interface {
	Create(ctx Context, u UGCRecord) (string, error)
	ExistsBySourceMediaID(ctx Context, accountRef, sourceMediaID string) (bool, error)
	UpdateStatus(ctx Context, id, status string) error
	// ApprovedByAccount returns the account's repost-eligible UGC, newest
	// first, for the content scheduler's asset pool.
	ApprovedByAccount(ctx Context, accountRef string, limit int) ([]UGCRecord, error)
}

// AttributionRepository manages attribution records and model weight versions.
type AttributionRepository interface {
	CreateRecord(ctx Context, r AttributionRecord) (string, error)
	LatestWeights(ctx Context) (AttributionModelWeights, error)
	SaveWeights(ctx Context, w AttributionModelWeights) error
	// RecentByAccount returns every attribution record for accountRef
	// created at or after since, for the weekly learning pipeline.
	RecentByAccount(ctx Context, accountRef string, since time.Time) ([]AttributionRecord, error)
}

// CommentRepository manages the engagement monitor's comment backlog —
// separate from the webhook real-time path, see InboundComment.
type CommentRepository interface {
	Create(ctx Context, c InboundComment) (string, error)
	UnprocessedSince(ctx Context, accountRef string, since time.Time, limit int) ([]InboundComment, error)
	MarkProcessed(ctx Context, id string) error
}

// AuditRepository is the append-only audit log.
type AuditRepository interface {
	Append(ctx Context, e AuditEntry) (string, error)
	RecentByAccount(ctx Context, accountRef string, limit int) ([]AuditEntry, error)
	ByRunID(ctx Context, runID string) ([]AuditEntry, error)
	Query(ctx Context, component string, since time.Time, limit int) ([]AuditEntry, error)
}

// AccountRepository manages tracked accounts.
type AccountRepository interface {
	Get(ctx Context, ref string) (Account, error)
	ActiveAccounts(ctx Context) ([]Account, error)
}

// PromptRepository loads prompt templates.
type PromptRepository interface {
	ActiveTemplates(ctx Context) ([]PromptTemplate, error)
}

// PendingOutboundJobRepository (port) — durable staging for jobs the queue
// could not push to Redis at enqueue time. It is not the job lifecycle
// ledger (JobRepository is); it only ever holds jobs awaiting a Redis push.
type PendingOutboundJobRepository interface {
	Stage(ctx Context, j Job) error
	Delete(ctx Context, id string) error
	OldestBatch(ctx Context, priority JobPriority, limit int) ([]Job, error)
}

// Queue (port) — the Outbound Queue.

// Queue is the durable outbound action queue described in §4.4.
type Queue interface {
	Enqueue(ctx Context, j Job) (string, error)
	Dequeue(ctx Context, priority JobPriority) (*Job, error)
	ScheduleRetry(ctx Context, j Job, delay time.Duration) error
	DrainScheduled(ctx Context) (int, error)
	DrainStoreFallback(ctx Context, limit int) (int, error)
	MoveToDLQ(ctx Context, j Job, reason string) error
	AcquireExecutionLock(ctx Context, jobID string, ttl time.Duration) (bool, error)
	ReleaseExecutionLock(ctx Context, jobID string) error
	Stats(ctx Context) (QueueStats, error)
	ListDLQ(ctx Context, limit int) ([]Job, error)
	RequeueFromDLQ(ctx Context, jobID string) error
}

// QueueStats is a point-in-time snapshot of queue depth.
type QueueStats struct {
	HighDepth      int64
	NormalDepth    int64
	ScheduledDepth int64
	DLQDepth       int64
}

// Cache (port) — the two-tier Cache Layer.

// Cache abstracts the distributed tier behind the two-tier cache; the
// process-local tier is internal to the cache package.
type Cache interface {
	Get(ctx Context, key string) (string, bool)
	Set(ctx Context, key string, value string, ttl time.Duration)
	Invalidate(ctx Context, key string)
}

// AIClient (port) — the LLM Gateway's upstream call surface.

// AIClient abstracts the chat-completion backend used by the LLM Gateway.
type AIClient interface {
	ChatJSON(ctx Context, systemPrompt, userPrompt string, tools []ToolSpec, maxTokens int) (string, []ToolCall, error)
}

// ToolSpec describes one tool the model may call.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// BackendProxy (port) — executes outbound actions against the platform backend.

// BackendProxy posts an executable action to the backend and reports a
// structured result.
type BackendProxy interface {
	Execute(ctx Context, j Job) error
}

// BackendReader (port) — the read-only counterpart to BackendProxy, used by
// scheduled pipelines that need live platform data (hashtag/tagged media,
// account/media insights) rather than posting an outbound action. accountRef
// is carried as a header the same way BackendProxy carries it on Execute.
type BackendReader interface {
	Get(ctx Context, accountRef, path string, query map[string]string) (map[string]any, error)
}

// JobError is the categorized outcome returned by a BackendProxy call.
// It travels with errors.As so the worker pool can branch on it without
// string sniffing.
type JobError struct {
	Category    ErrorCategory
	Retryable   bool
	Message     string
	RetryAfter  *time.Duration
}

func (e *JobError) Error() string { return e.Message }

// ErrorCategory classifies an outbound action failure for retry/DLQ routing.
type ErrorCategory string

// Error categories.
const (
	CategoryRateLimit   ErrorCategory = "rate_limit"
	CategoryTransient   ErrorCategory = "transient"
	CategoryAuthFailure ErrorCategory = "auth_failure"
	CategoryPermanent   ErrorCategory = "permanent"
	CategoryUnknown     ErrorCategory = "unknown"
)
