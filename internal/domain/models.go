package domain

// QuestionKind tells whether a question accepts one or several options.
type QuestionKind string

const (
	SingleChoice   QuestionKind = "single_choice"
	MultipleChoice QuestionKind = "multiple_choice"
)

// AnswerOption is a selectable answer; its ID is unique within the question.
type AnswerOption struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Question is a single catalog entry together with its answer key.
type Question struct {
	ID               string         `json:"id" yaml:"id"`
	Text             string         `json:"text" yaml:"text"`
	Options          []AnswerOption `json:"options" yaml:"options"`
	Kind             QuestionKind   `json:"kind" yaml:"kind"`
	CorrectAnswerIDs []string       `json:"correctAnswerIds" yaml:"correctAnswerIds"`
	Explanation      string         `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// HasOption reports whether optionID belongs to the question.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]AnswerOption(nil), q.Options...)
	out.CorrectAnswerIDs = append([]string(nil), q.CorrectAnswerIDs...)
	return out
}

// Catalog is the ordered, read-only set of questions a session runs on.
type Catalog struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title,omitempty" yaml:"title,omitempty"`
	DurationSeconds int        `json:"durationSeconds,omitempty" yaml:"durationSeconds,omitempty"` // overrides the configured duration when > 0
	Questions       []Question `json:"questions" yaml:"questions"`
}

// Clone returns a deep copy that shares no slices with c.
func (c Catalog) Clone() Catalog {
	out := c
	out.Questions = make([]Question, len(c.Questions))
	for i, q := range c.Questions {
		out.Questions[i] = q.Clone()
	}
	return out
}

// Question looks up a question by ID.
func (c Catalog) Question(questionID string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// Len returns the number of questions.
func (c Catalog) Len() int {
	return len(c.Questions)
}

// AnswerMap holds the selected option IDs per touched question.
// A missing key means the question was never answered.
type AnswerMap map[string][]string

// Clone returns a deep copy.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for questionID, selected := range m {
		out[questionID] = append([]string(nil), selected...)
	}
	return out
}

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusSubmitted  SessionStatus = "submitted"
	StatusTimedOut   SessionStatus = "timed_out"
)

// IsTerminal reports whether no further answers can be recorded.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusSubmitted || s == StatusTimedOut
}

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	Question
	UserSelectedAnswers []string `json:"userSelectedAnswers"`
	IsCorrect           bool     `json:"isCorrect"`
}

// Clone returns a deep copy of r.
func (r QuestionResult) Clone() QuestionResult {
	out := r
	out.Question = r.Question.Clone()
	out.UserSelectedAnswers = append([]string{}, r.UserSelectedAnswers...)
	return out
}

// QuestionStatus is the per-question marker shown in the picker.
type QuestionStatus string

const (
	QuestionUnanswered QuestionStatus = "unanswered"
	QuestionAnswered   QuestionStatus = "answered"
	QuestionCorrect    QuestionStatus = "correct"
	QuestionIncorrect  QuestionStatus = "incorrect"
)
