package services

import (
	"errors"
	"testing"
	"time"
)

func TestUsageLimiter_BlocksAtCeiling(t *testing.T) {
	limiter := NewUsageLimiterService(3)
	session := "sess-1"

	for i := 0; i < 3; i++ {
		if err := limiter.CheckLimit(session); err != nil {
			t.Fatalf("Request %d should be allowed: %v", i+1, err)
		}
		limiter.Increment(session)
	}

	err := limiter.CheckLimit(session)
	if err == nil {
		t.Fatal("Expected limit error at ceiling")
	}

	var limitErr *LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("Expected LimitExceededError, got %T", err)
	}
	if limitErr.Used != 3 || limitErr.Limit != 3 {
		t.Errorf("Expected used=3 limit=3, got used=%d limit=%d", limitErr.Used, limitErr.Limit)
	}
}

func TestUsageLimiter_ResetsOnNewDay(t *testing.T) {
	limiter := NewUsageLimiterService(2)
	session := "sess-rollover"

	day := time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return day }

	limiter.Increment(session)
	limiter.Increment(session)
	if err := limiter.CheckLimit(session); err == nil {
		t.Fatal("Should be blocked at ceiling")
	}

	// Next calendar day: first check must see a fresh counter and allow.
	limiter.now = func() time.Time { return day.AddDate(0, 0, 1) }

	if err := limiter.CheckLimit(session); err != nil {
		t.Errorf("New day should reset the counter: %v", err)
	}
	if used := limiter.Used(session); used != 0 {
		t.Errorf("Expected count 0 after date change, got %d", used)
	}
}

func TestUsageLimiter_SessionsAreIndependent(t *testing.T) {
	limiter := NewUsageLimiterService(1)

	limiter.Increment("sess-a")
	if err := limiter.CheckLimit("sess-a"); err == nil {
		t.Error("sess-a should be blocked")
	}
	if err := limiter.CheckLimit("sess-b"); err != nil {
		t.Errorf("sess-b should be unaffected: %v", err)
	}
}

func TestUsageLimiter_StatsLowRemaining(t *testing.T) {
	limiter := NewUsageLimiterService(12)
	session := "sess-stats"

	stats := limiter.Stats(session)
	if stats.LowRemaining {
		t.Error("Fresh session should not be low on remaining requests")
	}

	for i := 0; i < 2; i++ {
		limiter.Increment(session)
	}

	stats = limiter.Stats(session)
	if stats.Used != 2 || stats.Remaining != 10 {
		t.Errorf("Expected used=2 remaining=10, got used=%d remaining=%d", stats.Used, stats.Remaining)
	}
	if !stats.LowRemaining {
		t.Error("Remaining at the warning threshold should flag low_remaining")
	}
}

func TestUsageLimiter_DefaultCeiling(t *testing.T) {
	limiter := NewUsageLimiterService(0)
	if limiter.dailyLimit != DefaultDailyLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultDailyLimit, limiter.dailyLimit)
	}
}
