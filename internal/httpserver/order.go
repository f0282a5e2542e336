package httpserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// orderEvent is the parsed order-created webhook payload. domain.Order has
// no account_ref field for the same reason commentEvent/dmEvent track it
// alongside rather than on the shared entity.
type orderEvent struct {
	domain.Order
	AccountRef string
}

func parseOrderPayload(raw map[string]any) (orderEvent, error) {
	orderID := str(raw["order_id"])
	accountRef := str(raw["account_ref"])
	if orderID == "" || accountRef == "" {
		return orderEvent{}, fmt.Errorf("order payload missing order_id/account_ref")
	}
	total, _ := raw["total_value"].(float64)

	var items []string
	if raw, ok := raw["items"].([]any); ok {
		for _, it := range raw {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
	}

	return orderEvent{
		Order: domain.Order{
			OrderID:      orderID,
			Email:        str(raw["email"]),
			TotalValue:   total,
			Currency:     str(raw["currency"]),
			UTMSource:    str(raw["utm_source"]),
			DiscountCode: str(raw["discount_code"]),
			Items:        items,
			CreatedAt:    parseWebhookTimestamp(raw["created_at"]),
		},
		AccountRef: accountRef,
	}, nil
}

// signal is a detected attribution cue — the glossary's "Signal".
type signal struct {
	Channel string
	Weight  float64
}

// detectAllSignals is pure deterministic signal detection, grounded on
// original_source/agent/tools/attribution_tools.py's docstring ("pure-Python
// signal detection ... mirrors content_tools.py pattern: pure functions for
// deterministic math"). UTM params and discount codes are strong,
// unambiguous signals; recent engagement history is a weaker corroborating
// one.
func detectAllSignals(o domain.Order, engagementHistory []domain.AuditEntry) []signal {
	var signals []signal
	if o.UTMSource != "" {
		signals = append(signals, signal{Channel: "utm:" + o.UTMSource, Weight: 1.0})
	}
	if o.DiscountCode != "" {
		signals = append(signals, signal{Channel: "discount_code", Weight: 0.9})
	}
	for _, e := range engagementHistory {
		switch e.Component {
		case "webhook:comment":
			signals = append(signals, signal{Channel: "comment", Weight: 0.5})
		case "webhook:dm":
			signals = append(signals, signal{Channel: "dm", Weight: 0.6})
		case "scheduler:content":
			signals = append(signals, signal{Channel: "post_click", Weight: 0.4})
		}
	}
	return signals
}

// classifySignalStrategy decides how much the deterministic signals alone
// can be trusted: a strong UTM/discount-code signal skips the LLM entirely
// (fast path); anything weaker is validated by the gateway.
func classifySignalStrategy(signals []signal) string {
	strongest := 0.0
	for _, s := range signals {
		if s.Weight > strongest {
			strongest = s.Weight
		}
	}
	switch {
	case strongest >= 0.9:
		return "high"
	case strongest >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// buildCustomerJourney reconstructs an ordered touchpoint chain from the
// detected signals, oldest first, bounded by SalesAttributionMaxTouchpoints.
func buildCustomerJourney(signals []signal, orderTime time.Time, maxTouchpoints int) []domain.Touchpoint {
	if len(signals) > maxTouchpoints {
		signals = signals[len(signals)-maxTouchpoints:]
	}
	journey := make([]domain.Touchpoint, 0, len(signals))
	for i, s := range signals {
		// Signals arrive in detection order (most recent engagement last);
		// space them backward from the order so time-decay has something to decay.
		offset := time.Duration(len(signals)-i) * time.Hour
		journey = append(journey, domain.Touchpoint{
			Channel:   s.Channel,
			Timestamp: orderTime.Add(-offset),
			Weight:    s.Weight,
		})
	}
	return journey
}

// calculateMultiTouchModels scores one journey under all four attribution
// models named in the glossary, each normalized to [0, 100].
func calculateMultiTouchModels(journey []domain.Touchpoint) map[string]float64 {
	if len(journey) == 0 {
		return map[string]float64{"last_touch": 0, "first_touch": 0, "linear": 0, "time_decay": 0}
	}

	totalWeight := 0.0
	for _, tp := range journey {
		totalWeight += tp.Weight
	}
	linear := 0.0
	if totalWeight > 0 {
		linear = 100 * (totalWeight / float64(len(journey))) / maxWeight(journey)
	}

	decaySum, decayNorm := 0.0, 0.0
	last := journey[len(journey)-1].Timestamp
	for _, tp := range journey {
		ageDays := last.Sub(tp.Timestamp).Hours() / 24
		decayFactor := math.Pow(0.5, ageDays/7) // 7-day half-life
		decaySum += tp.Weight * decayFactor
		decayNorm += decayFactor
	}
	timeDecay := 0.0
	if decayNorm > 0 {
		timeDecay = 100 * (decaySum / decayNorm) / maxWeight(journey)
	}

	return map[string]float64{
		"last_touch":  100 * journey[len(journey)-1].Weight / maxWeight(journey),
		"first_touch": 100 * journey[0].Weight / maxWeight(journey),
		"linear":      clamp(linear),
		"time_decay":  clamp(timeDecay),
	}
}

func maxWeight(journey []domain.Touchpoint) float64 {
	m := 0.0
	for _, tp := range journey {
		if tp.Weight > m {
			m = tp.Weight
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// weightedScore blends the four per-model scores using the account's current
// AttributionModelWeights, producing the single 0-100 attribution_score the
// testable properties require.
func weightedScore(models map[string]float64, weights domain.AttributionModelWeights) float64 {
	score := 0.0
	for model, w := range weights.Weights {
		score += models[model] * w
	}
	return clamp(score)
}

func (s *Server) handleOrderWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		body, ok := verifyWebhookSignature(w, r, s.Cfg.WebhookSecret)
		if !ok {
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			writeError(w, http.StatusBadRequest, requestID, "invalid_json", "request body is not valid JSON")
			return
		}
		order, err := parseOrderPayload(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, requestID, "parse_error", err.Error())
			return
		}

		ctx := r.Context()

		// Hard rules: missing email, zero value, duplicate order id.
		if order.Email == "" {
			s.auditOrder(ctx, requestID, order, "rejected", "missing_email")
			writeJSON(w, http.StatusOK, map[string]any{"accepted": false, "reason": "missing_email", "request_id": requestID})
			return
		}
		if order.TotalValue <= 0 {
			s.auditOrder(ctx, requestID, order, "rejected", "zero_value")
			writeJSON(w, http.StatusOK, map[string]any{"accepted": false, "reason": "zero_value", "request_id": requestID})
			return
		}
		recent, err := s.Audit.RecentByAccount(ctx, order.AccountRef, 200)
		if err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "context_fetch_failed", err.Error())
			return
		}
		for _, e := range recent {
			if id, _ := e.Details["order_id"].(string); id == order.OrderID {
				s.auditOrder(ctx, requestID, order, "rejected", "duplicate_order")
				writeJSON(w, http.StatusOK, map[string]any{"accepted": false, "reason": "duplicate_order", "request_id": requestID})
				return
			}
		}

		signals := detectAllSignals(order.Order, recent)
		strategy := classifySignalStrategy(signals)
		journey := buildCustomerJourney(signals, order.CreatedAt, s.Cfg.SalesAttributionMaxTouchpoints)

		weights, err := s.Attribution.LatestWeights(ctx)
		if err != nil {
			slog.Warn("order webhook latest weights lookup failed, using equal split", slog.Any("error", err))
			weights = domain.AttributionModelWeights{Weights: map[string]float64{
				"last_touch": 0.25, "first_touch": 0.25, "linear": 0.25, "time_decay": 0.25,
			}}
		}
		models := calculateMultiTouchModels(journey)
		score := weightedScore(models, weights)

		// Medium/low confidence gets an LLM sanity check; high confidence
		// (a strong unambiguous UTM/discount signal) skips it (fast path).
		needsReview := false
		if strategy != "high" && s.Gateway != nil {
			analysis, err := s.Gateway.Analyze(ctx,
				"You validate automated sales-attribution scoring for plausibility. Respond as JSON with key needs_review (bool).",
				fmt.Sprintf("order_id=%s score=%.1f strategy=%s signals=%d", order.OrderID, score, strategy, len(signals)))
			if err == nil {
				needsReview, _ = analysis.JSON["needs_review"].(bool)
			}
		}
		if score >= s.Cfg.SalesAttributionFraudScoreThreshold {
			needsReview = true
		}

		record := domain.AttributionRecord{
			OrderID:             order.OrderID,
			AccountRef:          order.AccountRef,
			Touchpoints:         journey,
			ModelWeightsVersion: weights.Version,
		}
		recordID, err := s.Attribution.CreateRecord(ctx, record)
		if err != nil {
			writeError(w, http.StatusInternalServerError, requestID, "save_failed", err.Error())
			return
		}

		action := "auto_approved"
		if needsReview {
			action = "queued_for_review"
		}
		s.audit(ctx, requestID, order.AccountRef, "webhook:order", action, map[string]any{
			"order_id": order.OrderID, "attribution_score": score, "strategy": strategy, "record_id": recordID,
		}, needsReview)

		writeJSON(w, http.StatusOK, map[string]any{
			"accepted":          true,
			"attribution_score": score,
			"needs_review":      needsReview,
			"record_id":         recordID,
			"request_id":        requestID,
		})
	}
}

func (s *Server) auditOrder(ctx domain.Context, requestID string, order orderEvent, action, reason string) {
	s.audit(ctx, requestID, order.AccountRef, "webhook:order", action, map[string]any{
		"order_id": order.OrderID, "reason": reason,
	}, false)
}

func (s *Server) audit(ctx domain.Context, requestID, accountRef, component, action string, details map[string]any, needsHuman bool) {
	if s.Audit == nil {
		return
	}
	details["request_id"] = requestID
	if _, err := s.Audit.Append(ctx, domain.AuditEntry{
		RunID:      requestID,
		AccountRef: accountRef,
		Component:  component,
		Action:     action,
		Details:    details,
		NeedsHuman: needsHuman,
		CreatedAt:  time.Now(),
	}); err != nil {
		slog.Warn("audit append failed", slog.String("component", component), slog.Any("error", err))
	}
}
