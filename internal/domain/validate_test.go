package domain

import (
	"errors"
	"testing"
)

func TestCatalogValidate(t *testing.T) {
	valid := func() Catalog {
		return Catalog{
			ID: "c1",
			Questions: []Question{
				{
					ID:               "q1",
					Text:             "Pick a",
					Kind:             SingleChoice,
					Options:          []AnswerOption{{ID: "a"}, {ID: "b"}},
					CorrectAnswerIDs: []string{"a"},
				},
				{
					ID:               "q2",
					Text:             "Pick x and y",
					Kind:             MultipleChoice,
					Options:          []AnswerOption{{ID: "x"}, {ID: "y"}, {ID: "z"}},
					CorrectAnswerIDs: []string{"x", "y"},
				},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Catalog)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Catalog) {}},
		{name: "empty questions", mutate: func(c *Catalog) { c.Questions = nil }},
		{name: "missing catalog id", mutate: func(c *Catalog) { c.ID = "" }, wantErr: true},
		{name: "negative duration", mutate: func(c *Catalog) { c.DurationSeconds = -1 }, wantErr: true},
		{name: "duplicate question", mutate: func(c *Catalog) { c.Questions[1].ID = "q1" }, wantErr: true},
		{name: "single choice without key", mutate: func(c *Catalog) { c.Questions[0].CorrectAnswerIDs = nil }, wantErr: true},
		{name: "single choice with two keys", mutate: func(c *Catalog) { c.Questions[0].CorrectAnswerIDs = []string{"a", "b"} }, wantErr: true},
		{name: "multiple choice without key", mutate: func(c *Catalog) { c.Questions[1].CorrectAnswerIDs = []string{} }, wantErr: true},
		{name: "key outside options", mutate: func(c *Catalog) { c.Questions[1].CorrectAnswerIDs = []string{"x", "w"} }, wantErr: true},
		{name: "duplicate key", mutate: func(c *Catalog) { c.Questions[1].CorrectAnswerIDs = []string{"x", "x"} }, wantErr: true},
		{name: "duplicate option", mutate: func(c *Catalog) { c.Questions[1].Options[2].ID = "x" }, wantErr: true},
		{name: "no options", mutate: func(c *Catalog) { c.Questions[0].Options = nil }, wantErr: true},
		{name: "unknown kind", mutate: func(c *Catalog) { c.Questions[0].Kind = "essay" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCatalog) {
					t.Fatalf("expected ErrInvalidCatalog, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid catalog, got %v", err)
			}
		})
	}
}

func TestAnswerMapCloneIsDeep(t *testing.T) {
	m := AnswerMap{"q1": {"a", "b"}}
	clone := m.Clone()
	clone["q1"][0] = "z"
	clone["q2"] = []string{"c"}

	if m["q1"][0] != "a" {
		t.Fatalf("clone shares backing array: %v", m["q1"])
	}
	if _, ok := m["q2"]; ok {
		t.Fatalf("clone shares map")
	}
}
