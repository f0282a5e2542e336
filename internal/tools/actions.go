package tools

import (
	"fmt"

	"github.com/instabrain/core/internal/domain"
	"github.com/instabrain/core/internal/llmgateway"
)

// Backend proxy paths for the action shims below. These never get called
// directly — the shim's job is only to enqueue; the worker pool (internal/worker)
// posts to these paths via internal/adapter/backend.Client.
const (
	endpointReplyComment = "/api/instagram/reply-comment"
	endpointReplyDM      = "/api/instagram/reply-dm"
	endpointPublishPost  = "/api/instagram/publish-post"
	endpointRepostUGC    = "/api/instagram/repost-ugc"
)

// actionTools are the only tools the model may use to cause a real-world
// effect, and even these never touch the platform: each one enqueues a job
// and returns immediately, grounded on
// original_source/agent/tools/automation_tools.py's reply_to_comment/
// reply_to_dm (customer service) and live_fetch_tools.py's
// trigger_repost_ugc (one-time action, no cache).
func actionTools(d Deps) llmgateway.Catalogue {
	if d.Queue == nil {
		return nil
	}

	return llmgateway.Catalogue{
		"reply_to_comment": {
			Spec: domain.ToolSpec{
				Name:        "reply_to_comment",
				Description: "Queue a reply to an Instagram comment. Does not call the platform directly; enqueues for the worker pool.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_ref": map[string]any{"type": "string"},
						"comment_id":  map[string]any{"type": "string"},
						"text":        map[string]any{"type": "string"},
					},
					"required": []string{"account_ref", "comment_id", "text"},
				},
			},
			Handler: enqueueAction(d.Queue, domain.JobTypeReplyToComment, domain.PriorityHigh, endpointReplyComment,
				[]string{"account_ref", "comment_id", "text"}),
		},
		"reply_to_dm": {
			Spec: domain.ToolSpec{
				Name:        "reply_to_dm",
				Description: "Queue a reply to an Instagram direct message conversation. Does not call the platform directly; enqueues for the worker pool.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_ref":     map[string]any{"type": "string"},
						"conversation_id": map[string]any{"type": "string"},
						"text":            map[string]any{"type": "string"},
					},
					"required": []string{"account_ref", "conversation_id", "text"},
				},
			},
			Handler: enqueueAction(d.Queue, domain.JobTypeReplyToDM, domain.PriorityHigh, endpointReplyDM,
				[]string{"account_ref", "conversation_id", "text"}),
		},
		"publish_post": {
			Spec: domain.ToolSpec{
				Name:        "publish_post",
				Description: "Queue publication of a scheduled post. Does not call the platform directly; enqueues for the worker pool.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_ref":       map[string]any{"type": "string"},
						"scheduled_post_id": map[string]any{"type": "string"},
					},
					"required": []string{"account_ref", "scheduled_post_id"},
				},
			},
			Handler: enqueueAction(d.Queue, domain.JobTypePublishPost, domain.PriorityNormal, endpointPublishPost,
				[]string{"account_ref", "scheduled_post_id"}),
		},
		"repost_ugc": {
			Spec: domain.ToolSpec{
				Name:        "repost_ugc",
				Description: "Queue a repost of approved user-generated content. Does not call the platform directly; enqueues for the worker pool.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_ref": map[string]any{"type": "string"},
						"ugc_id":      map[string]any{"type": "string"},
					},
					"required": []string{"account_ref", "ugc_id"},
				},
			},
			Handler: enqueueAction(d.Queue, domain.JobTypeRepostUGC, domain.PriorityNormal, endpointRepostUGC,
				[]string{"account_ref", "ugc_id"}),
		},
	}
}

// enqueueAction builds a ToolHandler that copies the named string arguments
// into the job payload and enqueues it — the common shape behind every
// action shim above.
func enqueueAction(q domain.Queue, jobType domain.JobType, priority domain.JobPriority, endpoint string, requiredArgs []string) llmgateway.ToolHandler {
	return func(ctx domain.Context, args map[string]any) (any, error) {
		accountRef, _ := args["account_ref"].(string)
		if accountRef == "" {
			return nil, fmt.Errorf("account_ref is required")
		}

		payload := make(map[string]any, len(requiredArgs))
		for _, key := range requiredArgs {
			v, ok := args[key]
			if !ok {
				return nil, fmt.Errorf("%s is required", key)
			}
			payload[key] = v
		}

		jobID, err := q.Enqueue(ctx, domain.Job{
			Type:       jobType,
			Priority:   priority,
			AccountRef: accountRef,
			Payload:    payload,
			Endpoint:   endpoint,
			Source:     "tool:" + string(jobType),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"job_id": jobID, "queued": true}, nil
	}
}
