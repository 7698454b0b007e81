package quiz

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Timer is a one-shot countdown. After Start it calls tick once per interval
// with the seconds left, and calls expire exactly once when that reaches zero.
// Stop cancels any pending callback; it never blocks.
type Timer interface {
	Start(seconds int, tick func(remaining int), expire func())
	Stop()
}

// TimerFactory creates a fresh Timer for every countdown. Timers are never reused.
type TimerFactory func() Timer

// NewTickerTimerFactory returns a factory of TickerTimers with the given interval.
func NewTickerTimerFactory(interval time.Duration) TimerFactory {
	return func() Timer { return NewTickerTimer(interval) }
}

// TickerTimer drives the countdown from a time.Ticker in its own goroutine.
type TickerTimer struct {
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

// NewTickerTimer returns an unstarted TickerTimer. A non-positive interval means one second.
func NewTickerTimer(interval time.Duration) *TickerTimer {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TickerTimer{interval: interval, ctx: ctx, cancel: cancel}
}

func (t *TickerTimer) Start(seconds int, tick func(remaining int), expire func()) {
	t.once.Do(func() {
		go t.run(seconds, tick, expire)
	})
}

func (t *TickerTimer) Stop() {
	t.cancel()
}

func (t *TickerTimer) run(remaining int, tick func(int), expire func()) {
	if remaining > 0 {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for remaining > 0 {
			select {
			case <-t.ctx.Done():
				return
			case <-ticker.C:
				remaining--
				tick(remaining)
			}
		}
	}

	if t.ctx.Err() != nil {
		return
	}
	t.cancel()
	expire()
}

// ManualTimer is a Timer advanced by hand. It lets tests and other
// deterministic drivers step a countdown without sleeping.
type ManualTimer struct {
	mu        sync.Mutex
	remaining int
	tick      func(int)
	expire    func()
	started   bool
	stopped   bool
	fired     bool
}

func (m *ManualTimer) Start(seconds int, tick func(remaining int), expire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.remaining = max(seconds, 0)
	m.tick = tick
	m.expire = expire
}

func (m *ManualTimer) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Advance delivers up to n ticks, firing expire once when the count hits zero.
// Callbacks run without the timer lock held.
func (m *ManualTimer) Advance(n int) {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		if !m.started || m.stopped || m.fired {
			m.mu.Unlock()
			return
		}
		if m.remaining > 0 {
			m.remaining--
			remaining, tick := m.remaining, m.tick
			m.mu.Unlock()
			tick(remaining)
			m.mu.Lock()
		}
		if m.remaining > 0 || m.stopped {
			m.mu.Unlock()
			continue
		}
		m.fired = true
		expire := m.expire
		m.mu.Unlock()
		expire()
		return
	}
}

// Running reports whether the timer was started and has neither stopped nor fired.
func (m *ManualTimer) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopped && !m.fired
}

// Stopped reports whether Stop was called.
func (m *ManualTimer) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// ManualTimers is a TimerFactory source that remembers every timer it made.
type ManualTimers struct {
	mu     sync.Mutex
	timers []*ManualTimer
}

// Factory returns a TimerFactory producing ManualTimers.
func (f *ManualTimers) Factory() TimerFactory {
	return func() Timer {
		f.mu.Lock()
		defer f.mu.Unlock()
		t := &ManualTimer{}
		f.timers = append(f.timers, t)
		return t
	}
}

// Last returns the most recently created timer, or nil.
func (f *ManualTimers) Last() *ManualTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.timers) == 0 {
		return nil
	}
	return f.timers[len(f.timers)-1]
}

// Count returns how many timers were created.
func (f *ManualTimers) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// FormatRemaining renders seconds as mm:ss.
func FormatRemaining(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
