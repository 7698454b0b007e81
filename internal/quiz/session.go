package quiz

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

// Session owns a State, the countdown that feeds it, and the terminal hook.
// Commands are serialised; each one runs to completion before the next.
type Session struct {
	mu         sync.Mutex
	catalog    domain.Catalog
	state      State
	newTimer   TimerFactory
	timer      Timer
	generation uint64
	closed     bool
	onTerminal func(Snapshot)
	onTick     func(Snapshot)
	logger     *zap.Logger
}

// Option customises a Session.
type Option func(*Session)

// WithTimerFactory swaps the countdown implementation.
func WithTimerFactory(f TimerFactory) Option {
	return func(s *Session) {
		if f != nil {
			s.newTimer = f
		}
	}
}

// WithTerminalHook registers fn to run once per transition into submitted or
// timed_out, after the session lock is released.
func WithTerminalHook(fn func(Snapshot)) Option {
	return func(s *Session) { s.onTerminal = fn }
}

// WithTickHook registers fn to run after every countdown tick that leaves the
// session in progress, after the session lock is released.
func WithTickHook(fn func(Snapshot)) Option {
	return func(s *Session) { s.onTick = fn }
}

// WithLogger sets the logger for transition and timer logs. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New validates catalog and returns a not_started session. A non-positive
// pass threshold falls back to DefaultPassThreshold.
func New(catalog domain.Catalog, cfg Config, opts ...Option) (*Session, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = DefaultPassThreshold
	}
	cfg.Duration = max(cfg.Duration, 0)

	s := &Session{
		catalog:  catalog.Clone(),
		newTimer: NewTickerTimerFactory(time.Second),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("catalog_id", catalog.ID))
	s.state = NewState(&s.catalog, cfg)
	return s, nil
}

// Dispatch applies cmd and returns the resulting snapshot.
func (s *Session) Dispatch(cmd Command) Snapshot {
	return s.apply(cmd, nil)
}

func (s *Session) Start() Snapshot { return s.Dispatch(Command{Type: CmdStart}) }
func (s *Session) SelectAnswer(questionID, optionID string) Snapshot {
	return s.Dispatch(SelectAnswer(questionID, optionID))
}
func (s *Session) Next() Snapshot { return s.Dispatch(Command{Type: CmdNext}) }
func (s *Session) Previous() Snapshot { return s.Dispatch(Command{Type: CmdPrevious}) }
func (s *Session) Submit() Snapshot { return s.Dispatch(Command{Type: CmdSubmit}) }
func (s *Session) Expire() Snapshot { return s.Dispatch(Command{Type: CmdExpire}) }
func (s *Session) SelectForReview(index int) Snapshot { return s.Dispatch(SelectForReview(index)) }
func (s *Session) BackToOverview() Snapshot { return s.Dispatch(Command{Type: CmdBackToOverview}) }
func (s *Session) Retake() Snapshot { return s.Dispatch(Command{Type: CmdRetake}) }

// Close stops the countdown and ignores any later timer callback.
// Commands after Close still reduce but no timer is started again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

// apply reduces cmd. Timer callbacks pass their generation; a mismatch means
// the countdown belongs to a previous run and the command is dropped.
func (s *Session) apply(cmd Command, generation *uint64) Snapshot {
	s.mu.Lock()
	if generation != nil && (*generation != s.generation || s.closed) {
		snap := s.state.Snapshot()
		s.mu.Unlock()
		s.logger.Debug("dropping stale timer callback", zap.String("command", string(cmd.Type)))
		return snap
	}

	before := s.state.status
	s.state = Reduce(s.state, cmd)
	after := s.state.status

	if before == domain.StatusInProgress && after != domain.StatusInProgress {
		s.stopTimerLocked()
	}
	if before != domain.StatusInProgress && after == domain.StatusInProgress {
		s.startTimerLocked()
	}

	snap := s.state.Snapshot()
	hook, tickHook := s.onTerminal, s.onTick
	s.mu.Unlock()

	if cmd.Type == CmdTick && after == domain.StatusInProgress && tickHook != nil {
		tickHook(snap)
	}

	if before != after {
		s.logger.Info("session transition",
			zap.String("from", string(before)),
			zap.String("to", string(after)),
			zap.String("command", string(cmd.Type)),
		)
	}
	if !before.IsTerminal() && after.IsTerminal() {
		s.logger.Info("session scored",
			zap.Int("correct", snap.CorrectCount),
			zap.Int("total", snap.TotalQuestions),
			zap.Float64("percentage", snap.Percentage),
			zap.Bool("passed", snap.Passed),
		)
		if hook != nil {
			hook(snap)
		}
	}
	return snap
}

func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	if s.closed {
		return
	}
	gen := s.generation
	s.timer = s.newTimer()
	s.timer.Start(s.state.timeRemaining,
		func(int) { s.apply(Command{Type: CmdTick}, &gen) },
		func() { s.apply(Command{Type: CmdExpire}, &gen) },
	)
}

func (s *Session) stopTimerLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Snapshot returns the current projection.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// State returns the current state value.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Status() domain.SessionStatus { return s.State().Status() }
func (s *Session) CurrentIndex() int { return s.State().CurrentIndex() }
func (s *Session) Answers() domain.AnswerMap { return s.State().Answers() }
func (s *Session) TimeRemaining() int { return s.State().TimeRemaining() }
func (s *Session) ScorePercentage() float64 { return s.State().ScorePercentage() }
func (s *Session) Passed() bool { return s.State().Passed() }
func (s *Session) Results() []domain.QuestionResult {
	return s.State().Results()
}
func (s *Session) IsReviewing() bool { return s.State().IsReviewing() }
func (s *Session) QuestionStatus(questionID string) domain.QuestionStatus {
	return s.State().QuestionStatus(questionID)
}

// Catalog returns a deep copy of the catalog the session runs on.
func (s *Session) Catalog() domain.Catalog {
	return s.catalog.Clone()
}

// CatalogID returns the id of the catalog the session runs on.
func (s *Session) CatalogID() string {
	return s.catalog.ID
}
