package quiz

import "timed-quiz-service/internal/domain"

// Snapshot is a read-only projection of a State for renderers.
type Snapshot struct {
	CatalogID         string                  `json:"catalogId"`
	Status            domain.SessionStatus    `json:"status"`
	CurrentIndex      int                     `json:"currentIndex"`
	CurrentQuestionID string                  `json:"currentQuestionId,omitempty"`
	TotalQuestions    int                     `json:"totalQuestions"`
	Answers           domain.AnswerMap        `json:"answers"`
	TimeRemaining     int                     `json:"timeRemaining"`
	TimeLabel         string                  `json:"timeLabel"`
	Reviewing         bool                    `json:"reviewing"`
	Percentage        float64                 `json:"percentage"`
	PercentageLabel   string                  `json:"percentageLabel,omitempty"` // set once scored
	CorrectCount      int                     `json:"correctCount"`
	Passed            bool                    `json:"passed"`
	Results           []domain.QuestionResult `json:"results"`
	QuestionStatuses  []domain.QuestionStatus `json:"questionStatuses"`
}

// Snapshot projects s. Question statuses follow catalog order.
func (s State) Snapshot() Snapshot {
	statuses := make([]domain.QuestionStatus, 0, s.catalog.Len())
	for _, q := range s.catalog.Questions {
		statuses = append(statuses, s.QuestionStatus(q.ID))
	}
	var currentID, percentageLabel string
	if q, ok := s.CurrentQuestion(); ok {
		currentID = q.ID
	}
	if s.status.IsTerminal() {
		percentageLabel = s.scorecard.FormattedPercentage()
	}
	return Snapshot{
		CatalogID:         s.catalog.ID,
		Status:            s.status,
		CurrentIndex:      s.currentIndex,
		CurrentQuestionID: currentID,
		TotalQuestions:    s.catalog.Len(),
		Answers:           s.Answers(),
		TimeRemaining:     s.timeRemaining,
		TimeLabel:         FormatRemaining(s.timeRemaining),
		Reviewing:         s.reviewing,
		Percentage:        s.scorecard.Percentage,
		PercentageLabel:   percentageLabel,
		CorrectCount:      s.scorecard.CorrectCount,
		Passed:            s.scorecard.Passed,
		Results:           s.Results(),
		QuestionStatuses:  statuses,
	}
}
