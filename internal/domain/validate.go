package domain

import (
	"errors"
	"fmt"
)

// Validate checks the invariants a catalog must satisfy before a session may use it.
// An empty question list is valid and scores as 0%.
func (c Catalog) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing catalog id", ErrInvalidCatalog)
	}
	if c.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidCatalog, c.DurationSeconds)
	}

	seen := make(map[string]struct{}, len(c.Questions))
	for i, q := range c.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidCatalog, q.ID)
		}
		seen[q.ID] = struct{}{}

		if err := q.validate(); err != nil {
			return fmt.Errorf("%w: question %d (%s): %v", ErrInvalidCatalog, i, q.ID, err)
		}
	}
	return nil
}

func (q Question) validate() error {
	if len(q.Options) == 0 {
		return errors.New("no options")
	}
	options := make(map[string]struct{}, len(q.Options))
	for j, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("option %d has no id", j)
		}
		if _, dup := options[opt.ID]; dup {
			return fmt.Errorf("duplicate option id %q", opt.ID)
		}
		options[opt.ID] = struct{}{}
	}

	correct := make(map[string]struct{}, len(q.CorrectAnswerIDs))
	for _, id := range q.CorrectAnswerIDs {
		if _, ok := options[id]; !ok {
			return fmt.Errorf("correct answer %q is not an option", id)
		}
		if _, dup := correct[id]; dup {
			return fmt.Errorf("correct answer %q listed twice", id)
		}
		correct[id] = struct{}{}
	}

	switch q.Kind {
	case SingleChoice:
		if len(correct) != 1 {
			return fmt.Errorf("single choice needs exactly one correct answer, got %d", len(correct))
		}
	case MultipleChoice:
		if len(correct) == 0 {
			return errors.New("multiple choice needs at least one correct answer")
		}
	default:
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	return nil
}
