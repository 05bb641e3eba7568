package game

import "github.com/ashureev/hint-trivia/internal/domain"

// CategorySummary is the player-facing view of a category.
type CategorySummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	QuestionCount int    `json:"questionCount"`
}

// Snapshot is an immutable view of a session for transport.
type Snapshot struct {
	State        State             `json:"state"`
	Loaded       bool              `json:"loaded"`
	Categories   []CategorySummary `json:"categories"`
	Category     *CategorySummary  `json:"category,omitempty"`
	QuestionID   int64             `json:"questionId,omitempty"`
	Hints        []string          `json:"hints"`
	HintIndex    int               `json:"hintIndex"`
	HintCount    int               `json:"hintCount"`
	HasMoreHints bool              `json:"hasMoreHints"`
	Draft        string            `json:"draft"`
	Result       Result            `json:"result,omitempty"`
	Answer       string            `json:"answer,omitempty"`
	Notice       *Notice           `json:"notice,omitempty"`
}

// Snapshot captures the current session state.
// The answer is only disclosed once the player has solved the question.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		State:      c.state,
		Loaded:     c.loaded,
		Categories: make([]CategorySummary, 0, len(c.categories)),
		Hints:      []string{},
		HintIndex:  c.hintIndex,
		Draft:      c.draft,
		Result:     c.result,
	}

	for i := range c.categories {
		snap.Categories = append(snap.Categories, summarize(&c.categories[i]))
	}
	if c.category != nil {
		s := summarize(c.category)
		snap.Category = &s
	}
	if c.question != nil {
		snap.QuestionID = c.question.ID
		snap.HintCount = len(c.question.Hints)
		if snap.HintCount > 0 {
			for _, h := range c.question.Hints[:c.hintIndex+1] {
				snap.Hints = append(snap.Hints, h.Content)
			}
		}
		snap.HasMoreHints = c.hintIndex+1 < snap.HintCount
		if c.result == ResultCorrect {
			snap.Answer = c.question.Answer
		}
	}
	if c.notice != nil {
		n := *c.notice
		snap.Notice = &n
	}
	return snap
}

func summarize(c *domain.Category) CategorySummary {
	return CategorySummary{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		QuestionCount: len(c.VisibleQuestions()),
	}
}
