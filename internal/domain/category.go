// Package domain contains core domain types for the trivia application.
package domain

// Category groups questions shown to players.
type Category struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsVisible   bool       `json:"isVisible"`
	Questions   []Question `json:"questions"`
}

// VisibleQuestions returns the questions a player may be asked.
// A hidden category yields none regardless of its questions' flags.
func (c *Category) VisibleQuestions() []Question {
	if !c.IsVisible {
		return nil
	}
	visible := make([]Question, 0, len(c.Questions))
	for _, q := range c.Questions {
		if q.IsVisible {
			visible = append(visible, q)
		}
	}
	return visible
}

// VisibleCategories filters categories down to the ones shown to players.
func VisibleCategories(categories []Category) []Category {
	visible := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.IsVisible {
			visible = append(visible, c)
		}
	}
	return visible
}
