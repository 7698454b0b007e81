package quiz

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timed-quiz-service/internal/domain"
)

type terminalRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *terminalRecorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *terminalRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func newManualSession(t *testing.T, duration int) (*Session, *ManualTimers, *terminalRecorder) {
	t.Helper()
	timers := &ManualTimers{}
	rec := &terminalRecorder{}
	s, err := New(scenarioCatalog(), Config{Duration: duration},
		WithTimerFactory(timers.Factory()),
		WithTerminalHook(rec.record),
	)
	require.NoError(t, err)
	return s, timers, rec
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	catalog := scenarioCatalog()
	catalog.Questions[0].CorrectAnswerIDs = []string{"a", "b"}

	_, err := New(catalog, DefaultConfig())
	require.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestNewDefaultsPassThreshold(t *testing.T) {
	s, _, _ := newManualSession(t, 10)
	assert.Equal(t, DefaultPassThreshold, s.State().cfg.PassThreshold)
}

func TestSessionTimesOutAfterDuration(t *testing.T) {
	s, timers, rec := newManualSession(t, 3)
	s.Start()
	s.SelectAnswer("Q1", "a")
	s.SelectAnswer("Q2", "c")
	s.SelectAnswer("Q3", "y")
	s.SelectAnswer("Q3", "x")

	timer := timers.Last()
	require.NotNil(t, timer)

	timer.Advance(1)
	assert.Equal(t, 2, s.TimeRemaining())
	timer.Advance(1)
	assert.Equal(t, 1, s.TimeRemaining())
	assert.Equal(t, domain.StatusInProgress, s.Status())

	timer.Advance(1)
	assert.Equal(t, domain.StatusTimedOut, s.Status())
	assert.Equal(t, 0, s.TimeRemaining())
	assert.Equal(t, 1, rec.count())

	manual, _, _ := newManualSession(t, 3)
	manual.Start()
	manual.SelectAnswer("Q1", "a")
	manual.SelectAnswer("Q2", "c")
	manual.SelectAnswer("Q3", "y")
	manual.SelectAnswer("Q3", "x")
	manual.Submit()

	assert.Equal(t, manual.Results(), s.Results(), "timeout scores exactly like submit")
	assert.InDelta(t, 66.67, s.ScorePercentage(), 0.01)
	assert.True(t, s.Passed())
}

func TestSubmitStopsTimerAndLateExpireIsIgnored(t *testing.T) {
	s, timers, rec := newManualSession(t, 3)
	s.Start()
	timer := timers.Last()

	s.SelectAnswer("Q1", "a")
	submitted := s.Submit()
	assert.True(t, timer.Stopped())

	// A stale callback delivered despite Stop must not rescore.
	timer.stopped = false
	timer.Advance(3)

	assert.Equal(t, domain.StatusSubmitted, s.Status())
	assert.Equal(t, submitted, s.Snapshot())
	assert.Equal(t, 1, rec.count())
}

func TestSubmitTwiceNotifiesOnce(t *testing.T) {
	s, _, rec := newManualSession(t, 3)
	s.Start()
	first := s.Submit()
	second := s.Submit()
	third := s.Expire()

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, rec.count())
}

func TestRetakeUsesNewTimer(t *testing.T) {
	s, timers, rec := newManualSession(t, 3)
	fresh := s.Start()
	first := timers.Last()

	first.Advance(3)
	require.Equal(t, domain.StatusTimedOut, s.Status())

	retaken := s.Retake()
	assert.Equal(t, fresh, retaken)
	assert.Equal(t, 2, timers.Count())

	second := timers.Last()
	assert.NotSame(t, first, second)
	assert.True(t, second.Running())

	second.Advance(1)
	assert.Equal(t, 2, s.TimeRemaining())

	s.Submit()
	assert.Equal(t, 2, rec.count())
}

func TestCloseStopsTimer(t *testing.T) {
	s, timers, rec := newManualSession(t, 2)
	s.Start()
	timer := timers.Last()

	s.Close()
	assert.True(t, timer.Stopped())

	timer.stopped = false
	timer.Advance(2)
	assert.Equal(t, domain.StatusInProgress, s.Status())
	assert.Equal(t, 0, rec.count())
}

func TestStartTwiceKeepsSingleTimer(t *testing.T) {
	s, timers, _ := newManualSession(t, 5)
	s.Start()
	s.Start()
	assert.Equal(t, 1, timers.Count())
}

func TestZeroDurationExpiresOnFirstAdvance(t *testing.T) {
	s, timers, rec := newManualSession(t, 0)
	s.Start()

	timers.Last().Advance(1)
	assert.Equal(t, domain.StatusTimedOut, s.Status())
	assert.Equal(t, 1, rec.count())
}

func TestSessionQueries(t *testing.T) {
	s, _, _ := newManualSession(t, 30)
	s.Start()
	s.SelectAnswer("Q1", "a")
	s.Next()
	s.Next()
	s.Previous()

	assert.Equal(t, 1, s.CurrentIndex())
	assert.Equal(t, domain.AnswerMap{"Q1": {"a"}}, s.Answers())
	assert.Equal(t, domain.QuestionAnswered, s.QuestionStatus("Q1"))

	s.Submit()
	s.SelectForReview(0)
	assert.True(t, s.IsReviewing())
	s.BackToOverview()
	assert.False(t, s.IsReviewing())
	assert.Len(t, s.Results(), 3)
	assert.Equal(t, "scenario", s.Catalog().ID)

	answers := s.Answers()
	answers["Q1"][0] = "mutated"
	assert.Equal(t, []string{"a"}, s.Answers()["Q1"], "Answers returns a copy")
}

func TestConcurrentSubmitAndExpire(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, timers, rec := newManualSession(t, 1)
		s.Start()
		timer := timers.Last()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.Submit() }()
		go func() { defer wg.Done(); timer.Advance(1) }()
		wg.Wait()

		require.True(t, s.Status().IsTerminal())
		require.Equal(t, 1, rec.count(), "exactly one terminal transition")
	}
}

func TestTickHookFollowsCountdown(t *testing.T) {
	timers := &ManualTimers{}
	var (
		mu        sync.Mutex
		remaining []int
	)
	s, err := New(scenarioCatalog(), Config{Duration: 3},
		WithTimerFactory(timers.Factory()),
		WithTickHook(func(snap Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			remaining = append(remaining, snap.TimeRemaining)
		}),
	)
	require.NoError(t, err)

	s.Start()
	timers.Last().Advance(3)

	require.Equal(t, domain.StatusTimedOut, s.Status())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1, 0}, remaining)
}
