package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/quiz"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(sessionID string, session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// CatalogRepository loads catalogs (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error)
}

// Settings are the quiz defaults applied to every new session.
type Settings struct {
	Duration      time.Duration
	PassThreshold float64
	Timers        quiz.TimerFactory

	// TickEvery spaces the state events pushed while the countdown runs.
	TickEvery time.Duration
}

// QuizService hosts independent single-user quiz sessions.
type QuizService struct {
	sessions SessionRepository
	catalogs CatalogRepository
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
}

func NewQuizService(store SessionRepository, catalogs CatalogRepository, settings Settings, logger *zap.Logger) *QuizService {
	if settings.Duration <= 0 {
		settings.Duration = 10 * time.Minute
	}
	if settings.PassThreshold <= 0 {
		settings.PassThreshold = quiz.DefaultPassThreshold
	}
	if settings.TickEvery <= 0 {
		settings.TickEvery = 5 * time.Second
	}
	if settings.Timers == nil {
		settings.Timers = quiz.NewTickerTimerFactory(time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		sessions: store,
		catalogs: catalogs,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSession loads the catalog and registers a not_started session for it.
func (s *QuizService) CreateSession(ctx context.Context, catalogID string) (string, quiz.Snapshot, error) {
	catalog, err := s.catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		return "", quiz.Snapshot{}, fmt.Errorf("load catalog %q: %w", catalogID, err)
	}

	duration := int(s.settings.Duration / time.Second)
	if catalog.DurationSeconds > 0 {
		duration = catalog.DurationSeconds
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("session_id", id))
	session := newSession(id, s.now())
	engine, err := quiz.New(catalog,
		quiz.Config{Duration: duration, PassThreshold: s.settings.PassThreshold},
		quiz.WithTimerFactory(s.settings.Timers),
		quiz.WithTerminalHook(session.publishFinished),
		quiz.WithTickHook(session.publishTick(int(s.settings.TickEvery/time.Second))),
		quiz.WithLogger(logger),
	)
	if err != nil {
		return "", quiz.Snapshot{}, fmt.Errorf("create session for %q: %w", catalogID, err)
	}
	session.engine = engine
	s.sessions.Save(id, session)

	logger.Info("session created",
		zap.String("catalog_id", catalog.ID),
		zap.Int("questions", catalog.Len()),
		zap.Int("duration_seconds", duration),
	)
	return id, engine.Snapshot(), nil
}

// Dispatch forwards a client command to the session. Timer-only commands are rejected.
func (s *QuizService) Dispatch(_ context.Context, sessionID string, cmd quiz.Command) (quiz.Snapshot, error) {
	if !clientCommand(cmd.Type) {
		return quiz.Snapshot{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedCommand, cmd.Type)
	}
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return quiz.Snapshot{}, domain.ErrSessionNotFound
	}
	snap := session.engine.Dispatch(cmd)
	session.publish(Event{Type: EventState, SessionID: sessionID, Snapshot: snap})
	return snap, nil
}

// Snapshot returns the current state of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (quiz.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return quiz.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.engine.Snapshot(), nil
}

// Catalog returns the catalog a session runs on, for renderers.
func (s *QuizService) Catalog(_ context.Context, sessionID string) (domain.Catalog, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Catalog{}, domain.ErrSessionNotFound
	}
	return session.engine.Catalog(), nil
}

// Subscribe returns a channel that receives session events, including the
// finished event pushed when the countdown runs out.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close tears a session down: the countdown stops and subscribers are released.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.close()
	s.sessions.Delete(sessionID)
	s.logger.Info("session closed",
		zap.String("session_id", sessionID),
		zap.Duration("age", s.now().Sub(session.CreatedAt())),
	)
}

func clientCommand(t quiz.CommandType) bool {
	switch t {
	case quiz.CmdStart, quiz.CmdSelectAnswer, quiz.CmdNext, quiz.CmdPrevious, quiz.CmdSubmit,
		quiz.CmdSelectForReview, quiz.CmdBackToOverview, quiz.CmdRetake:
		return true
	default:
		return false
	}
}

// EventType names what an Event carries.
type EventType string

const (
	// EventState follows every accepted command.
	EventState EventType = "state"
	// EventFinished is pushed once per submit or timeout.
	EventFinished EventType = "finished"
)

// Event is delivered to session subscribers.
type Event struct {
	Type      EventType     `json:"type"`
	SessionID string        `json:"sessionId"`
	Snapshot  quiz.Snapshot `json:"snapshot"`
}

// Session pairs a quiz engine with its subscribers.
type Session struct {
	id        string
	createdAt time.Time
	engine    *quiz.Session

	mu          sync.RWMutex
	closed      bool
	subscribers map[chan Event]struct{}
}

func newSession(id string, createdAt time.Time) *Session {
	return &Session{
		id:          id,
		createdAt:   createdAt,
		subscribers: make(map[chan Event]struct{}),
	}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, engine *quiz.Session) *Session {
	s := newSession(id, time.Now())
	s.engine = engine
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Engine exposes the underlying quiz session.
func (s *Session) Engine() *quiz.Session { return s.engine }

func (s *Session) publishFinished(snap quiz.Snapshot) {
	s.publish(Event{Type: EventFinished, SessionID: s.id, Snapshot: snap})
}

// publishTick pushes a state event every `every` seconds of countdown so
// clients can resync their clock. The final tick is left to the finished event.
func (s *Session) publishTick(every int) func(quiz.Snapshot) {
	every = max(every, 1)
	return func(snap quiz.Snapshot) {
		if snap.TimeRemaining > 0 && snap.TimeRemaining%every == 0 {
			s.publish(Event{Type: EventState, SessionID: s.id, Snapshot: snap})
		}
	}
}

func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop its oldest event instead of blocking the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) close() {
	if s.engine != nil {
		s.engine.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
