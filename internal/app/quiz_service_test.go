package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/quiz"
)

func TestCreateSessionAndScoring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	id, snap, err := service.CreateSession(ctx, "capitals")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id == "" {
		t.Fatalf("expected session id")
	}
	if snap.Status != domain.StatusNotStarted {
		t.Fatalf("expected not_started, got %s", snap.Status)
	}

	dispatch(t, service, id, quiz.Command{Type: quiz.CmdStart})
	dispatch(t, service, id, quiz.SelectAnswer("q1", "o2"))
	dispatch(t, service, id, quiz.SelectAnswer("q2", "b"))
	dispatch(t, service, id, quiz.SelectAnswer("q2", "a"))
	final := dispatch(t, service, id, quiz.Command{Type: quiz.CmdSubmit})

	if final.Status != domain.StatusSubmitted {
		t.Fatalf("expected submitted, got %s", final.Status)
	}
	if final.CorrectCount != 2 || final.Percentage != 100 || !final.Passed {
		t.Fatalf("expected a perfect pass, got %+v", final)
	}
}

func TestSubscribeReceivesFinishedOnTimeout(t *testing.T) {
	ctx := context.Background()
	service, timers := newTestService()

	id, _, err := service.CreateSession(ctx, "capitals")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	dispatch(t, service, id, quiz.Command{Type: quiz.CmdStart})
	if ev := <-ch; ev.Type != app.EventState || ev.Snapshot.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress state event, got %+v", ev)
	}

	// catalog overrides the service default of 60s
	timers.Last().Advance(5)

	ev := <-ch
	if ev.Type != app.EventFinished {
		t.Fatalf("expected finished event, got %s", ev.Type)
	}
	if ev.SessionID != id || ev.Snapshot.Status != domain.StatusTimedOut || ev.Snapshot.TimeRemaining != 0 {
		t.Fatalf("unexpected finished event %+v", ev)
	}
}

func TestCountdownPushesThrottledStateEvents(t *testing.T) {
	ctx := context.Background()
	timers := &quiz.ManualTimers{}
	service := app.NewQuizService(memory.NewSessionStore(), testCatalogs(), app.Settings{
		Timers:    timers.Factory(),
		TickEvery: 2 * time.Second,
	}, nil)

	id, _, err := service.CreateSession(ctx, "capitals")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	dispatch(t, service, id, quiz.Command{Type: quiz.CmdStart})
	<-ch

	// 5s catalog: ticks at 4,3,2,1,0; every 2s publishes 4 and 2 only
	timers.Last().Advance(5)

	var got []int
	for ev := range ch {
		if ev.Type == app.EventFinished {
			break
		}
		if ev.Type != app.EventState {
			t.Fatalf("unexpected event %s", ev.Type)
		}
		got = append(got, ev.Snapshot.TimeRemaining)
	}
	if len(got) != 2 || got[0] != 4 || got[1] != 2 {
		t.Fatalf("expected state events at 4s and 2s, got %v", got)
	}
}

func TestDispatchRejectsTimerCommands(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	id, _, _ := service.CreateSession(ctx, "capitals")

	for _, kind := range []quiz.CommandType{quiz.CmdTick, quiz.CmdExpire, "teleport"} {
		_, err := service.Dispatch(ctx, id, quiz.Command{Type: kind})
		if !errors.Is(err, domain.ErrUnsupportedCommand) {
			t.Fatalf("%s: expected unsupported command, got %v", kind, err)
		}
	}
}

func TestUnknownSessionAndCatalog(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if _, err := service.Dispatch(ctx, "missing", quiz.Command{Type: quiz.CmdStart}); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := service.Snapshot(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.Subscribe(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.CreateSession(ctx, "nope"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestCloseStopsSessionAndSubscribers(t *testing.T) {
	ctx := context.Background()
	service, timers := newTestService()

	id, _, _ := service.CreateSession(ctx, "capitals")
	ch, cancel, err := service.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()
	dispatch(t, service, id, quiz.Command{Type: quiz.CmdStart})
	<-ch

	service.Close(ctx, id)
	if !timers.Last().Stopped() {
		t.Fatalf("expected countdown stopped")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected subscriber channel closed")
	}
	if _, err := service.Snapshot(ctx, id); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	a, _, _ := service.CreateSession(ctx, "capitals")
	b, _, _ := service.CreateSession(ctx, "capitals")
	if a == b {
		t.Fatalf("expected distinct session ids")
	}

	dispatch(t, service, a, quiz.Command{Type: quiz.CmdStart})
	snap, err := service.Snapshot(ctx, b)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Status != domain.StatusNotStarted {
		t.Fatalf("expected untouched session, got %s", snap.Status)
	}
}

func dispatch(t *testing.T, service *app.QuizService, id string, cmd quiz.Command) quiz.Snapshot {
	t.Helper()
	snap, err := service.Dispatch(context.Background(), id, cmd)
	if err != nil {
		t.Fatalf("dispatch %s: %v", cmd.Type, err)
	}
	return snap
}

func newTestService() (*app.QuizService, *quiz.ManualTimers) {
	timers := &quiz.ManualTimers{}
	service := app.NewQuizService(memory.NewSessionStore(), testCatalogs(), app.Settings{
		Duration: time.Minute,
		Timers:   timers.Factory(),
	}, nil)
	return service, timers
}

func testCatalogs() app.CatalogRepository {
	return memory.NewCatalogRepository(memory.NewStaticCatalogLoader(map[string]domain.Catalog{
		"capitals": {
			ID:              "capitals",
			Title:           "Capitals",
			DurationSeconds: 5,
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Capital of France?",
					Kind: domain.SingleChoice,
					Options: []domain.AnswerOption{
						{ID: "o1", Text: "Lyon"},
						{ID: "o2", Text: "Paris"},
					},
					CorrectAnswerIDs: []string{"o2"},
				},
				{
					ID:   "q2",
					Text: "Which are EU capitals?",
					Kind: domain.MultipleChoice,
					Options: []domain.AnswerOption{
						{ID: "a", Text: "Rome"},
						{ID: "b", Text: "Madrid"},
						{ID: "c", Text: "Zurich"},
					},
					CorrectAnswerIDs: []string{"a", "b"},
				},
			},
		},
	}), 5*time.Minute)
}
