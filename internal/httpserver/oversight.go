package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// oversightRequest is the body of POST /oversight/chat.
type oversightRequest struct {
	AccountRef string   `json:"account_ref"`
	Question   string   `json:"question"`
	History    []string `json:"history"`
	Stream     bool     `json:"stream"`
}

// oversightAnswer is the uniform shape spec.md §4.10 requires.
type oversightAnswer struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	ToolsUsed []string `json:"tools_used"`
	LatencyMs int64    `json:"latency_ms"`
}

// handleOversightChat is a narrow wrapper over the LLM gateway: it
// pre-fetches recent audit entries as auto-context, builds an explanation
// prompt, and caches identical history-less questions for OversightCacheTTL
// (grounded on original_source/agent/services/oversight_brain.py). A
// Stream:true request gets the finished answer as SSE: one data frame per
// word, then a done event carrying the full JSON answer. The model call
// itself is not streamed, since domain.AIClient.ChatJSON exposes no
// token-level callbacks.
func (s *Server) handleOversightChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		var req oversightRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountRef == "" || req.Question == "" {
			writeError(w, http.StatusBadRequest, requestID, "invalid_request", "account_ref and question are required")
			return
		}

		ctx, cancel := contextWithTimeout(r.Context(), s.Cfg.OversightTimeout)
		defer cancel()

		cacheKey := "oversight:" + req.AccountRef + ":" + req.Question
		if len(req.History) == 0 {
			if cached, ok := s.OversightCache.Get(ctx, cacheKey); ok {
				var answer oversightAnswer
				if json.Unmarshal([]byte(cached), &answer) == nil {
					s.respondOversight(w, r, requestID, answer, req.Stream)
					return
				}
			}
		}

		start := time.Now()
		audits, err := s.Audit.RecentByAccount(ctx, req.AccountRef, s.Cfg.OversightAuditLimit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "context_fetch_failed", err.Error())
			return
		}

		system := "You explain the automated Instagram system's past decisions to a human operator using the " +
			"audit entries provided as context. Respond as JSON with keys answer and sources (list of audit entry ids)."
		user := buildOversightPrompt(req.Question, req.History, audits)

		analysis, err := s.Gateway.Analyze(ctx, system, user)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, requestID, "model_unavailable", "AI model could not process request")
			return
		}

		answerText, _ := analysis.JSON["answer"].(string)
		var sources []string
		if raw, ok := analysis.JSON["sources"].([]any); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					sources = append(sources, s)
				}
			}
		}
		answer := oversightAnswer{
			Answer:    answerText,
			Sources:   sources,
			ToolsUsed: analysis.ToolsUsed,
			LatencyMs: time.Since(start).Milliseconds(),
		}

		if len(req.History) == 0 {
			if encoded, err := json.Marshal(answer); err == nil {
				s.OversightCache.Set(ctx, cacheKey, string(encoded), s.Cfg.OversightCacheTTL)
			}
		}

		s.audit(ctx, requestID, req.AccountRef, "oversight:chat", "answered", map[string]any{
			"question": req.Question, "latency_ms": answer.LatencyMs,
		}, false)

		s.respondOversight(w, r, requestID, answer, req.Stream)
	}
}

func (s *Server) respondOversight(w http.ResponseWriter, r *http.Request, requestID string, answer oversightAnswer, stream bool) {
	if !stream {
		writeJSON(w, http.StatusOK, answer)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, answer)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	scanner := bufio.NewScanner(strings.NewReader(answer.Answer))
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		fmt.Fprintf(w, "data: %s\n\n", scanner.Text())
		flusher.Flush()
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", mustJSON(answer))
	flusher.Flush()
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Warn("oversight sse payload marshal failed", slog.Any("error", err))
		return "{}"
	}
	return string(b)
}

func buildOversightPrompt(question string, history []string, audits []domain.AuditEntry) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, h := range history {
			b.WriteString(h)
			b.WriteString("\n")
		}
	}
	b.WriteString("Recent audited decisions:\n")
	for _, a := range audits {
		fmt.Fprintf(&b, "- [%s] %s/%s: %s\n", a.CreatedAt.Format(time.RFC3339), a.Component, a.Action, a.ID)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func contextWithTimeout(ctx domain.Context, d time.Duration) (domain.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
