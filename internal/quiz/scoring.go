package quiz

import (
	"fmt"
	"slices"

	"timed-quiz-service/internal/domain"
)

// DefaultPassThreshold is the minimum percentage needed to pass.
const DefaultPassThreshold = 51.0

// Scorecard is the cached outcome of a terminal transition.
type Scorecard struct {
	Results      []domain.QuestionResult `json:"results"`
	CorrectCount int                     `json:"correctCount"`
	Total        int                     `json:"total"`
	Percentage   float64                 `json:"percentage"`
	Passed       bool                    `json:"passed"`
}

// FormattedPercentage renders the percentage with two decimals, e.g. "66.67%".
func (s Scorecard) FormattedPercentage() string {
	return fmt.Sprintf("%.2f%%", s.Percentage)
}

// Result returns the cached result for questionID.
func (s Scorecard) Result(questionID string) (domain.QuestionResult, bool) {
	for _, r := range s.Results {
		if r.ID == questionID {
			return r, true
		}
	}
	return domain.QuestionResult{}, false
}

// Score grades every catalog question against answers. It never fails:
// an empty catalog scores 0% and does not pass.
func Score(catalog domain.Catalog, answers domain.AnswerMap, passThreshold float64) Scorecard {
	results := make([]domain.QuestionResult, 0, len(catalog.Questions))
	correct := 0
	for _, q := range catalog.Questions {
		selected := append([]string{}, answers[q.ID]...)
		ok := Grade(q, selected)
		if ok {
			correct++
		}
		results = append(results, domain.QuestionResult{
			Question:            q.Clone(),
			UserSelectedAnswers: selected,
			IsCorrect:           ok,
		})
	}

	var percentage float64
	if total := len(catalog.Questions); total > 0 {
		percentage = 100 * float64(correct) / float64(total)
	}
	return Scorecard{
		Results:      results,
		CorrectCount: correct,
		Total:        len(catalog.Questions),
		Percentage:   percentage,
		Passed:       percentage >= passThreshold,
	}
}

// Grade decides whether selected answers question q correctly.
// Selection order matters only through the single-choice rule; multiple
// choice compares sets.
func Grade(q domain.Question, selected []string) bool {
	switch q.Kind {
	case domain.SingleChoice:
		return len(selected) == 1 && slices.Contains(q.CorrectAnswerIDs, selected[0])
	case domain.MultipleChoice:
		return sameSet(selected, q.CorrectAnswerIDs)
	default:
		return false
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := slices.Clone(a)
	sb := slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}
