package convo

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// buckets is the pair of independent token buckets spec.md §4.3
// requires per conversation: a per-minute bucket and a per-hour bucket.
// Both must allow the call for rate_check to succeed.
type buckets struct {
	perMinute *rate.Limiter
	perHour   *rate.Limiter
}

// RateLimiter enforces per-conversation request budgets. It is exposed
// as a core.Guardrail so a pipeline can declare it alongside content
// detectors ("exposed as a guardrail for uniformity", spec.md §4.3),
// even though its block decision is independent of content inspection.
// Grounded on the teacher's internal/api/middleware/rate_limit.go
// per-client token bucket, keyed here by conversation ID instead of
// API key/IP.
type RateLimiter struct {
	name              string
	mu                sync.Mutex
	perConversation   map[string]*buckets
	perMinuteLimit    int
	perHourLimit      int
}

// NewRateLimiter builds a RateLimiter guardrail. perMinuteLimit or
// perHourLimit of 0 disables that window.
func NewRateLimiter(name string, perMinuteLimit, perHourLimit int) *RateLimiter {
	return &RateLimiter{
		name:            name,
		perConversation: make(map[string]*buckets),
		perMinuteLimit:  perMinuteLimit,
		perHourLimit:    perHourLimit,
	}
}

func (rl *RateLimiter) Name() string { return rl.name }
func (rl *RateLimiter) Type() string { return "rate_limit" }

func (rl *RateLimiter) PerformanceClass() core.PerformanceClass { return core.PerformanceInstant }

func (rl *RateLimiter) bucketsFor(conversationID string) *buckets {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.perConversation[conversationID]
	if !ok {
		b = &buckets{}
		if rl.perMinuteLimit > 0 {
			b.perMinute = rate.NewLimiter(rate.Limit(float64(rl.perMinuteLimit)/60.0), rl.perMinuteLimit)
		}
		if rl.perHourLimit > 0 {
			b.perHour = rate.NewLimiter(rate.Limit(float64(rl.perHourLimit)/3600.0), rl.perHourLimit)
		}
		rl.perConversation[conversationID] = b
	}
	return b
}

// Analyze implements core.Guardrail. A conversation with no ID (a
// stateless, one-off check) is never rate limited since there is no key
// to bucket it under.
func (rl *RateLimiter) Analyze(ctx context.Context, content core.Content, _ core.GuardrailContext) (core.GuardrailResult, error) {
	start := time.Now()
	result := core.GuardrailResult{
		GuardrailName: rl.name,
		GuardrailType: rl.Type(),
		Action:        core.ActionAllow,
		RiskLevel:     core.RiskNone,
	}

	if content.ConversationID == "" {
		result.Latency = time.Since(start)
		return result, nil
	}

	b := rl.bucketsFor(content.ConversationID)
	window := ""
	switch {
	case b.perMinute != nil && !b.perMinute.Allow():
		window = "minute"
	case b.perHour != nil && !b.perHour.Allow():
		window = "hour"
	}

	result.Latency = time.Since(start)
	if window == "" {
		return result, nil
	}

	result.Blocked = true
	result.Action = core.ActionBlock
	result.Confidence = 1
	result.RiskLevel = core.RiskMedium
	result.Reason = (&core.RateLimitError{ConversationID: content.ConversationID, Window: window}).Error()
	return result, nil
}

// Cleanup drops bucket state for conversations whose buckets are back
// at full capacity, mirroring the teacher's periodic stale-limiter
// sweep. Callers run this on a ticker; the rate limiter itself starts
// no goroutines.
func (rl *RateLimiter) Cleanup() {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, b := range rl.perConversation {
		minuteIdle := b.perMinute == nil || b.perMinute.TokensAt(now) == float64(rl.perMinuteLimit)
		hourIdle := b.perHour == nil || b.perHour.TokensAt(now) == float64(rl.perHourLimit)
		if minuteIdle && hourIdle {
			delete(rl.perConversation, id)
		}
	}
}
