package scheduled

import (
	"context"
	"testing"
	"time"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/domain"
)

func TestComputeChannelWeights_NormalizesToOne(t *testing.T) {
	records := []domain.AttributionRecord{
		{Touchpoints: []domain.Touchpoint{{Channel: "dm", Weight: 0.6}, {Channel: "comment", Weight: 0.4}}},
		{Touchpoints: []domain.Touchpoint{{Channel: "dm", Weight: 0.8}}},
	}
	weights := computeChannelWeights(records)

	var total float64
	for _, w := range weights {
		total += w
	}
	if total < 0.999 || total > 1.001 {
		t.Errorf("expected weights to sum to 1.0, got %v (%v)", total, weights)
	}
}

func TestComputeChannelWeights_EmptyFallsBackToDefault(t *testing.T) {
	weights := computeChannelWeights(nil)
	if weights["last_touch"] != defaultAttributionWeights["last_touch"] {
		t.Errorf("expected fallback to default weights for no records")
	}
}

func TestBlendWeights_SumsToOne(t *testing.T) {
	computed := map[string]float64{"dm": 0.7, "comment": 0.3}
	prior := map[string]float64{"dm": 0.4, "comment": 0.3, "post_click": 0.3}
	blended := blendWeights(computed, prior, 0.7)

	var total float64
	for _, w := range blended {
		total += w
	}
	if total < 0.999 || total > 1.001 {
		t.Errorf("expected blended weights to sum to 1.0, got %v (%v)", total, blended)
	}
	if _, ok := blended["post_click"]; !ok {
		t.Error("expected a channel only present in the prior version to still appear after blending")
	}
}

func TestRunWeeklyAttributionLearning_SkipsAccountWithNoRecords(t *testing.T) {
	attribution := &fakeAttribution{}
	d := Deps{
		Accounts:    &fakeAccounts{accounts: []domain.Account{{Ref: "acct-1", Active: true}}},
		Attribution: attribution,
		Audit:       &fakeAudit{},
		Cache:       &fakeCache{},
		Cfg:         config.Config{PipelineFanoutConcurrency: 2},
	}
	if err := RunWeeklyAttributionLearning(context.Background(), d); err != nil {
		t.Fatalf("RunWeeklyAttributionLearning: %v", err)
	}
	if attribution.weights != nil {
		t.Error("expected no weights saved when an account has no recent attribution records")
	}
}

func TestRunWeeklyAttributionLearning_SavesNewVersion(t *testing.T) {
	attribution := &fakeAttribution{records: []domain.AttributionRecord{
		{AccountRef: "acct-1", CreatedAt: time.Now(), Touchpoints: []domain.Touchpoint{{Channel: "dm", Weight: 1.0}}},
	}}
	d := Deps{
		Accounts:    &fakeAccounts{accounts: []domain.Account{{Ref: "acct-1", Active: true}}},
		Attribution: attribution,
		Audit:       &fakeAudit{},
		Cache:       &fakeCache{},
		Cfg:         config.Config{PipelineFanoutConcurrency: 2},
	}
	if err := RunWeeklyAttributionLearning(context.Background(), d); err != nil {
		t.Fatalf("RunWeeklyAttributionLearning: %v", err)
	}
	if attribution.weights == nil || attribution.weights.Version != 1 {
		t.Errorf("expected version 1 to be saved, got %+v", attribution.weights)
	}
}
