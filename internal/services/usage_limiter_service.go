package services

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// DefaultDailyLimit is the generation ceiling per session per calendar day.
const DefaultDailyLimit = 250

// LowRemainingThreshold is where callers should start warning the user.
const LowRemainingThreshold = 10

// LimitExceededError signals the daily ceiling was reached. The request must
// be blocked outright, not merely warned about.
type LimitExceededError struct {
	Message string    `json:"message"`
	Limit   int       `json:"limit"`
	Used    int       `json:"used"`
	ResetAt time.Time `json:"reset_at"`
}

func (e *LimitExceededError) Error() string {
	return e.Message
}

// UsageLimiterService tracks generation requests per session per day.
// Counters live in process memory only; running multiple replicas multiplies
// effective quota. That limitation is accepted for the single-session usage
// model this serves.
type UsageLimiterService struct {
	dailyLimit int
	counters   *cache.Cache
	now        func() time.Time
}

// UsageStats is the snapshot returned to the usage endpoint.
type UsageStats struct {
	Used         int       `json:"used"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	LowRemaining bool      `json:"low_remaining"`
	ResetAt      time.Time `json:"reset_at"`
}

// NewUsageLimiterService creates a limiter with the given daily ceiling.
// Non-positive limits fall back to the default.
func NewUsageLimiterService(dailyLimit int) *UsageLimiterService {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &UsageLimiterService{
		dailyLimit: dailyLimit,
		// Counter keys embed the date, so yesterday's entries just age out.
		counters: cache.New(48*time.Hour, time.Hour),
		now:      time.Now,
	}
}

// CheckLimit reports whether the session may run another generation today.
// Keys embed the calendar date, so a new day reads as a fresh zero counter.
func (s *UsageLimiterService) CheckLimit(sessionID string) error {
	used := s.Used(sessionID)
	if used >= s.dailyLimit {
		return &LimitExceededError{
			Message: fmt.Sprintf("Daily usage limit reached (%d requests). Please try again tomorrow.", s.dailyLimit),
			Limit:   s.dailyLimit,
			Used:    used,
			ResetAt: s.nextMidnightUTC(),
		}
	}
	return nil
}

// Increment adds one to today's count. Call exactly once per accepted
// generation request, after CheckLimit passed and only when the pipeline is
// actually invoked.
func (s *UsageLimiterService) Increment(sessionID string) int {
	key := s.counterKey(sessionID)
	if _, err := s.counters.IncrementInt(key, 1); err != nil {
		s.counters.Set(key, 1, cache.DefaultExpiration)
		return 1
	}
	return s.Used(sessionID)
}

// Used returns today's count for a session.
func (s *UsageLimiterService) Used(sessionID string) int {
	if v, found := s.counters.Get(s.counterKey(sessionID)); found {
		if count, ok := v.(int); ok {
			return count
		}
	}
	return 0
}

// Stats returns the session's current usage snapshot.
func (s *UsageLimiterService) Stats(sessionID string) UsageStats {
	used := s.Used(sessionID)
	remaining := s.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return UsageStats{
		Used:         used,
		Limit:        s.dailyLimit,
		Remaining:    remaining,
		LowRemaining: remaining <= LowRemainingThreshold,
		ResetAt:      s.nextMidnightUTC(),
	}
}

// counterKey scopes a counter to one session and one calendar day.
func (s *UsageLimiterService) counterKey(sessionID string) string {
	date := s.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("usage:%s:%s", sessionID, date)
}

// nextMidnightUTC returns when today's counters stop applying.
func (s *UsageLimiterService) nextMidnightUTC() time.Time {
	now := s.now().UTC()
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
}
