package framework

import (
	"context"
	"sync"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// TimeSource provides the time for simulations and pollers.
type TimeSource interface {
	Time() time.Time
}

// TimeSourceFunc is the func form of TimeSource.
type TimeSourceFunc func() time.Time

// Time implements TimeSource.
func (f TimeSourceFunc) Time() time.Time {
	return f()
}

// SystemTime is the TimeSource of the wall clock.
var SystemTime TimeSource = TimeSourceFunc(time.Now)

// ManualTime is a TimeSource only moving when told. It's used in tests.
type ManualTime struct {
	now  time.Time
	lock sync.Mutex
}

// NewManualTime creates a ManualTime starting at now.
func NewManualTime(now time.Time) *ManualTime {
	return &ManualTime{now: now}
}

// Time implements TimeSource.
func (t *ManualTime) Time() time.Time {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.now
}

// Advance moves the time forward.
func (t *ManualTime) Advance(d time.Duration) {
	t.lock.Lock()
	t.now = t.now.Add(d)
	t.lock.Unlock()
}
