package brain

import (
	"testing"
	"time"

	"github.com/salesflow-ai/pulse/internal/model"
)

func TestCacheKey_StableForEqualData(t *testing.T) {
	a := CacheKey("lead_reply", map[string]any{"lead_id": "l1", "channel": "whatsapp"})
	b := CacheKey("lead_reply", map[string]any{"channel": "whatsapp", "lead_id": "l1"})
	if a != b {
		t.Errorf("equal data must hash to the same key: %s vs %s", a, b)
	}

	c := CacheKey("lead_reply", map[string]any{"lead_id": "l2", "channel": "whatsapp"})
	if a == c {
		t.Error("different data must not collide")
	}
	d := CacheKey("lead_ghosted", map[string]any{"lead_id": "l1", "channel": "whatsapp"})
	if a == d {
		t.Error("different observation types must not collide")
	}
}

func TestDecisionCache_GetClones(t *testing.T) {
	cache := NewDecisionCache(time.Hour, 10)
	key := CacheKey("lead_reply", map[string]any{"lead_id": "l1"})
	cache.Put(key, model.Decision{
		ID:              "orig",
		ActionType:      model.ActionSendMessage,
		Confidence:      model.ConfidenceVeryHigh,
		Executed:        true,
		Result:          map[string]any{"success": true},
		ExecutionTimeMs: 42,
	})

	got := cache.Get(key)
	if got == nil {
		t.Fatal("expected a cache hit")
	}
	if got.ID == "orig" || got.ID == "" {
		t.Errorf("clone must carry a fresh id, got %q", got.ID)
	}
	if got.Executed || got.Result != nil || got.ExecutionTimeMs != 0 {
		t.Errorf("clone must not carry execution state: %+v", got)
	}
	if got.ActionType != model.ActionSendMessage || got.Confidence != model.ConfidenceVeryHigh {
		t.Errorf("clone lost the decision payload: %+v", got)
	}

	second := cache.Get(key)
	if second == nil || second.ID == got.ID {
		t.Error("each hit must produce a distinct clone")
	}
}

func TestDecisionCache_RejectsLowConfidence(t *testing.T) {
	cache := NewDecisionCache(time.Hour, 10)
	for _, conf := range []model.Confidence{model.ConfidenceMedium, model.ConfidenceLow, model.ConfidenceUncertain} {
		key := CacheKey("x", map[string]any{"c": string(conf)})
		cache.Put(key, model.Decision{Confidence: conf})
		if cache.Get(key) != nil {
			t.Errorf("%s decisions must not be cached", conf)
		}
	}
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestDecisionCache_TTLExpiry(t *testing.T) {
	now := time.Now()
	cache := NewDecisionCache(time.Hour, 10).WithNow(func() time.Time { return now })
	key := CacheKey("lead_reply", map[string]any{"lead_id": "l1"})
	cache.Put(key, model.Decision{Confidence: model.ConfidenceHigh})

	if cache.Get(key) == nil {
		t.Fatal("expected a hit inside the TTL")
	}

	now = now.Add(time.Hour + time.Second)
	if cache.Get(key) != nil {
		t.Error("expected expiry after the TTL")
	}
	if cache.Len() != 0 {
		t.Error("expired entry must be dropped")
	}
}

func TestDecisionCache_EvictsOldestAtCapacity(t *testing.T) {
	now := time.Now()
	cache := NewDecisionCache(time.Hour, 2).WithNow(func() time.Time { return now })

	cache.Put("a", model.Decision{Confidence: model.ConfidenceHigh})
	now = now.Add(time.Minute)
	cache.Put("b", model.Decision{Confidence: model.ConfidenceHigh})
	now = now.Add(time.Minute)
	cache.Put("c", model.Decision{Confidence: model.ConfidenceHigh})

	if cache.Len() != 2 {
		t.Fatalf("expected capacity 2, got %d", cache.Len())
	}
	if cache.Get("a") != nil {
		t.Error("oldest entry should have been evicted")
	}
	if cache.Get("b") == nil || cache.Get("c") == nil {
		t.Error("newer entries must survive eviction")
	}
}

func TestDecisionCache_HitRate(t *testing.T) {
	cache := NewDecisionCache(time.Hour, 10)
	if cache.HitRate() != 0 {
		t.Error("expected 0 before any lookup")
	}

	cache.Put("k", model.Decision{Confidence: model.ConfidenceVeryHigh})
	cache.Get("k")
	cache.Get("k")
	cache.Get("missing")

	if got := cache.HitRate(); got < 0.66 || got > 0.67 {
		t.Errorf("expected hit rate 2/3, got %v", got)
	}
}
