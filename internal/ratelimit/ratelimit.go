package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Budget caps outbound text-completion requests per rolling window so a
// burst of category refreshes cannot exhaust the API quota.
type Budget struct {
	mu        sync.Mutex
	count     int
	max       int // 0 = unlimited
	window    time.Duration
	resetTime time.Time
}

func NewBudget(max int, window time.Duration) *Budget {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Budget{
		max:       max,
		window:    window,
		resetTime: time.Now().Add(window),
	}
}

// CanUse reports whether another completion request fits in the budget.
func (b *Budget) CanUse() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.count >= b.max {
		slog.Warn("completion budget exhausted", "used", b.count, "max", b.max)
		return false
	}
	return true
}

// Record counts one issued completion request against the budget.
func (b *Budget) Record() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	b.count++
}

// Remaining returns how many requests are left in the current window,
// or -1 when the budget is unlimited.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max <= 0 {
		return -1
	}
	left := b.max - b.count
	if left < 0 {
		left = 0
	}
	return left
}

func (b *Budget) checkReset() {
	if time.Now().After(b.resetTime) {
		b.count = 0
		b.resetTime = time.Now().Add(b.window)
	}
}
