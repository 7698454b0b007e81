package quiz

import (
	"slices"

	"timed-quiz-service/internal/domain"
)

// Config holds the per-session settings.
type Config struct {
	// Duration is the countdown length in seconds.
	Duration int
	// PassThreshold is the minimum percentage that passes.
	PassThreshold float64
}

// DefaultConfig returns a ten minute quiz with the default pass mark.
func DefaultConfig() Config {
	return Config{Duration: 600, PassThreshold: DefaultPassThreshold}
}

// CommandType names a session command.
type CommandType string

const (
	CmdStart           CommandType = "start"
	CmdSelectAnswer    CommandType = "select_answer"
	CmdNext            CommandType = "next"
	CmdPrevious        CommandType = "previous"
	CmdSubmit          CommandType = "submit"
	CmdExpire          CommandType = "expire"
	CmdTick            CommandType = "tick"
	CmdSelectForReview CommandType = "select_for_review"
	CmdBackToOverview  CommandType = "back_to_overview"
	CmdRetake          CommandType = "retake"
)

// Command is an input to Reduce. Only the fields relevant to Type are read.
type Command struct {
	Type       CommandType `json:"type"`
	QuestionID string      `json:"questionId,omitempty"`
	OptionID   string      `json:"optionId,omitempty"`
	Index      int         `json:"index,omitempty"`
}

// SelectAnswer builds a select_answer command.
func SelectAnswer(questionID, optionID string) Command {
	return Command{Type: CmdSelectAnswer, QuestionID: questionID, OptionID: optionID}
}

// SelectForReview builds a select_for_review command.
func SelectForReview(index int) Command {
	return Command{Type: CmdSelectForReview, Index: index}
}

// State is an immutable session value. Reduce returns new values and never
// mutates the one it is given; the catalog is borrowed and only read.
type State struct {
	catalog       *domain.Catalog
	cfg           Config
	status        domain.SessionStatus
	answers       domain.AnswerMap
	currentIndex  int
	timeRemaining int
	scorecard     Scorecard
	reviewing     bool
}

// NewState returns the initial not_started state for catalog.
func NewState(catalog *domain.Catalog, cfg Config) State {
	return State{
		catalog:       catalog,
		cfg:           cfg,
		status:        domain.StatusNotStarted,
		answers:       domain.AnswerMap{},
		timeRemaining: cfg.Duration,
	}
}

// Reduce applies cmd to s. Commands that are invalid for the current state,
// or that reference unknown questions or options, return s unchanged.
func Reduce(s State, cmd Command) State {
	switch cmd.Type {
	case CmdStart:
		return s.start()
	case CmdSelectAnswer:
		return s.selectAnswer(cmd.QuestionID, cmd.OptionID)
	case CmdNext:
		return s.next()
	case CmdPrevious:
		return s.previous()
	case CmdSubmit:
		return s.finish(domain.StatusSubmitted)
	case CmdExpire:
		return s.finish(domain.StatusTimedOut)
	case CmdTick:
		return s.tick()
	case CmdSelectForReview:
		return s.selectForReview(cmd.Index)
	case CmdBackToOverview:
		return s.backToOverview()
	case CmdRetake:
		return s.retake()
	default:
		return s
	}
}

func (s State) start() State {
	if s.status != domain.StatusNotStarted {
		return s
	}
	fresh := NewState(s.catalog, s.cfg)
	fresh.status = domain.StatusInProgress
	return fresh
}

func (s State) retake() State {
	if !s.status.IsTerminal() {
		return s
	}
	return NewState(s.catalog, s.cfg).start()
}

func (s State) selectAnswer(questionID, optionID string) State {
	if s.status != domain.StatusInProgress {
		return s
	}
	q, ok := s.catalog.Question(questionID)
	if !ok || !q.HasOption(optionID) {
		return s
	}

	prev := s.answers[questionID]
	var next []string
	switch q.Kind {
	case domain.SingleChoice:
		next = []string{optionID}
	case domain.MultipleChoice:
		if i := slices.Index(prev, optionID); i >= 0 {
			next = slices.Delete(slices.Clone(prev), i, i+1)
		} else {
			next = append(slices.Clone(prev), optionID)
		}
	default:
		return s
	}

	answers := s.answers.Clone()
	answers[questionID] = next
	s.answers = answers
	return s
}

func (s State) finish(status domain.SessionStatus) State {
	if s.status != domain.StatusInProgress {
		return s
	}
	s.scorecard = Score(*s.catalog, s.answers, s.cfg.PassThreshold)
	s.status = status
	s.reviewing = false
	if status == domain.StatusTimedOut {
		s.timeRemaining = 0
	}
	return s
}

func (s State) tick() State {
	if s.status != domain.StatusInProgress {
		return s
	}
	if s.timeRemaining > 0 {
		s.timeRemaining--
	}
	return s
}

func (s State) next() State {
	if s.status == domain.StatusNotStarted {
		return s
	}
	if s.currentIndex < s.catalog.Len()-1 {
		s.currentIndex++
	}
	return s
}

func (s State) previous() State {
	if s.status == domain.StatusNotStarted {
		return s
	}
	if s.currentIndex > 0 {
		s.currentIndex--
	}
	return s
}

func (s State) selectForReview(index int) State {
	if index < 0 || index >= s.catalog.Len() {
		return s
	}
	switch {
	case s.status == domain.StatusInProgress:
		s.currentIndex = index
	case s.status.IsTerminal():
		s.currentIndex = index
		s.reviewing = true
	}
	return s
}

func (s State) backToOverview() State {
	if s.status.IsTerminal() {
		s.reviewing = false
	}
	return s
}

func (s State) Status() domain.SessionStatus { return s.status }
func (s State) CurrentIndex() int { return s.currentIndex }
func (s State) TimeRemaining() int { return s.timeRemaining }
func (s State) IsReviewing() bool { return s.reviewing }
func (s State) ScorePercentage() float64 { return s.scorecard.Percentage }
func (s State) Passed() bool { return s.scorecard.Passed }

// Scorecard returns a deep copy of the cached scorecard.
func (s State) Scorecard() Scorecard {
	sc := s.scorecard
	sc.Results = s.Results()
	return sc
}

// Answers returns a copy of the answer map.
func (s State) Answers() domain.AnswerMap {
	return s.answers.Clone()
}

// Results returns a deep copy of the cached results; empty until the session is terminal.
func (s State) Results() []domain.QuestionResult {
	out := make([]domain.QuestionResult, 0, len(s.scorecard.Results))
	for _, r := range s.scorecard.Results {
		out = append(out, r.Clone())
	}
	return out
}

// CurrentQuestion returns the question at the current index.
func (s State) CurrentQuestion() (domain.Question, bool) {
	if s.currentIndex < 0 || s.currentIndex >= s.catalog.Len() {
		return domain.Question{}, false
	}
	return s.catalog.Questions[s.currentIndex].Clone(), true
}

// QuestionStatus derives the picker marker for questionID. Once terminal the
// cached scorecard is authoritative.
func (s State) QuestionStatus(questionID string) domain.QuestionStatus {
	q, ok := s.catalog.Question(questionID)
	if !ok {
		return domain.QuestionUnanswered
	}
	if !s.status.IsTerminal() {
		if len(s.answers[questionID]) > 0 {
			return domain.QuestionAnswered
		}
		return domain.QuestionUnanswered
	}

	var correct bool
	if r, ok := s.scorecard.Result(questionID); ok {
		correct = r.IsCorrect
	} else {
		correct = Grade(q, s.answers[questionID])
	}
	if correct {
		return domain.QuestionCorrect
	}
	return domain.QuestionIncorrect
}
