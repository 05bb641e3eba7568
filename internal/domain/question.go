package domain

import "sort"

// Question pairs a single answer with an ordered list of hints.
type Question struct {
	ID         int64  `json:"id"`
	Answer     string `json:"answer"`
	CategoryID int64  `json:"categoryId"`
	IsVisible  bool   `json:"isVisible"`
	Hints      []Hint `json:"hints"`
}

// Hint is one progressively revealed clue.
type Hint struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	Order      int    `json:"order"`
	QuestionID int64  `json:"questionId"`
}

// SortHints orders the hints ascending by Order.
func (q *Question) SortHints() {
	sort.SliceStable(q.Hints, func(i, j int) bool {
		return q.Hints[i].Order < q.Hints[j].Order
	})
}

// HintsFromText builds an ordered hint list from raw strings.
// Blank entries are dropped before orders are assigned.
func HintsFromText(texts []string) []Hint {
	hints := make([]Hint, 0, len(texts))
	for _, t := range texts {
		if t == "" {
			continue
		}
		hints = append(hints, Hint{Content: t, Order: len(hints)})
	}
	return hints
}
