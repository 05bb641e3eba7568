package domain

// Statistics summarises stored content for the admin page.
type Statistics struct {
	TotalCategories      int            `json:"totalCategories"`
	TotalQuestions       int            `json:"totalQuestions"`
	TotalHints           int            `json:"totalHints"`
	QuestionsPerCategory map[string]int `json:"questionsPerCategory"`
}
