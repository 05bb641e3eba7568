// Package game implements the player-facing session state machine:
// category selection, question selection, hint disclosure and answer checking.
package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ashureev/hint-trivia/internal/domain"
)

// State is the phase of a play-through.
type State string

const (
	// StateCategorySelection is the initial state: no category chosen.
	StateCategorySelection State = "category_selection"
	// StateCategoryChosen means a category is picked but no question is active.
	StateCategoryChosen State = "category_chosen"
	// StateQuestionActive means a question is being played.
	StateQuestionActive State = "question_active"
)

// Result is the outcome of the last answer submission.
type Result string

const (
	ResultUnset     Result = ""
	ResultCorrect   Result = "correct"
	ResultIncorrect Result = "incorrect"
)

// NoticeKind classifies user-visible messages.
type NoticeKind string

const (
	NoticeLoadFailed      NoticeKind = "load_failed"
	NoticeNoQuestions     NoticeKind = "no_questions"
	NoticeUnknownCategory NoticeKind = "unknown_category"
	NoticeCorrect         NoticeKind = "correct"
	NoticeIncorrect       NoticeKind = "incorrect"
)

var noticeMessages = map[NoticeKind]string{
	NoticeLoadFailed:      "Failed to load content. Please try again.",
	NoticeNoQuestions:     "There are no questions in this category.",
	NoticeUnknownCategory: "That category is not available.",
	NoticeCorrect:         "Correct! 🎉",
	NoticeIncorrect:       "Incorrect, try again.",
}

// Notice is a non-fatal message for the player.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

func newNotice(kind NoticeKind) *Notice {
	return &Notice{Kind: kind, Message: noticeMessages[kind]}
}

// ContentProvider supplies the categories a player can choose from.
// Categories carry their nested questions (visible or not) with hints
// ordered ascending.
type ContentProvider interface {
	ListVisibleCategories(ctx context.Context) ([]domain.Category, error)
}

// RandomSource picks an index in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int { return rand.IntN(n) }

// Controller drives one play-through. It is not safe for concurrent use;
// callers serialise events (see Registry).
type Controller struct {
	provider ContentProvider
	rnd      RandomSource

	attempted  bool
	loaded     bool
	categories []domain.Category

	state     State
	category  *domain.Category
	question  *domain.Question
	hintIndex int
	draft     string
	result    Result
	notice    *Notice
}

// NewController creates a controller in the category selection state.
// A nil rnd uses the global math/rand/v2 source.
func NewController(provider ContentProvider, rnd RandomSource) *Controller {
	if rnd == nil {
		rnd = defaultSource{}
	}
	return &Controller{
		provider: provider,
		rnd:      rnd,
		state:    StateCategorySelection,
	}
}

// State returns the current phase.
func (c *Controller) State() State { return c.state }

// EnsureLoaded fetches content on first use. Later calls do nothing, even
// after a failed load; retries go through LoadCategories.
func (c *Controller) EnsureLoaded(ctx context.Context) error {
	if c.attempted {
		return nil
	}
	return c.LoadCategories(ctx)
}

// LoadCategories fetches visible categories from the provider.
// On failure the session falls back to an empty category selection with a
// load-failed notice; the returned error is for the caller's logs only.
func (c *Controller) LoadCategories(ctx context.Context) error {
	c.attempted = true
	categories, err := c.provider.ListVisibleCategories(ctx)
	if err != nil {
		c.reset()
		c.categories = nil
		c.loaded = false
		c.notice = newNotice(NoticeLoadFailed)
		return fmt.Errorf("list visible categories: %w", err)
	}

	c.categories = domain.VisibleCategories(categories)
	c.loaded = true
	if c.notice != nil && c.notice.Kind == NoticeLoadFailed {
		c.notice = nil
	}

	// A reload may drop the category the player was on.
	if c.category != nil {
		idx, ok := c.findCategory(c.category.ID)
		if !ok {
			c.reset()
			return nil
		}
		c.category = &c.categories[idx]
	}

	// It may also withdraw the active question.
	if c.question != nil {
		q, ok := findQuestion(c.category.VisibleQuestions(), c.question.ID)
		if !ok {
			c.state = StateCategoryChosen
			c.question = nil
			c.clearRound()
			return nil
		}
		c.question = &q
		if c.hintIndex >= len(q.Hints) {
			c.hintIndex = max(len(q.Hints)-1, 0)
		}
	}
	return nil
}

// SelectCategory chooses a category by id from any state.
func (c *Controller) SelectCategory(id int64) {
	idx, ok := c.findCategory(id)
	if !ok {
		c.notice = newNotice(NoticeUnknownCategory)
		return
	}
	c.state = StateCategoryChosen
	c.category = &c.categories[idx]
	c.question = nil
	c.clearRound()
}

// StartGame picks a random visible question from the chosen category.
// With no visible questions the state stays CategoryChosen and a notice is set.
func (c *Controller) StartGame() {
	if c.category == nil {
		return
	}

	visible := c.category.VisibleQuestions()
	if len(visible) == 0 {
		c.state = StateCategoryChosen
		c.question = nil
		c.clearRound()
		c.notice = newNotice(NoticeNoQuestions)
		return
	}

	q := visible[c.rnd.IntN(len(visible))]
	c.question = &q
	c.state = StateQuestionActive
	c.clearRound()
}

// RevealNextHint discloses one more hint. At the last hint it does nothing.
func (c *Controller) RevealNextHint() {
	if c.state != StateQuestionActive || c.question == nil {
		return
	}
	if c.hintIndex+1 < len(c.question.Hints) {
		c.hintIndex++
	}
}

// SetDraft records the player's in-progress answer.
func (c *Controller) SetDraft(text string) {
	if c.state != StateQuestionActive {
		return
	}
	c.draft = text
}

// SubmitAnswer evaluates text against the active question's answer.
// Leading and trailing whitespace of text is ignored and the comparison is
// case-insensitive; nothing else is normalised.
func (c *Controller) SubmitAnswer(text string) Result {
	if c.state != StateQuestionActive || c.question == nil {
		return c.result
	}
	c.draft = text
	if MatchAnswer(text, c.question.Answer) {
		c.result = ResultCorrect
		c.notice = newNotice(NoticeCorrect)
	} else {
		c.result = ResultIncorrect
		c.notice = newNotice(NoticeIncorrect)
	}
	return c.result
}

// ReturnToCategorySelection discards the current category and question.
func (c *Controller) ReturnToCategorySelection() {
	c.reset()
}

// MatchAnswer reports whether input matches answer under the game's rule.
func MatchAnswer(input, answer string) bool {
	return strings.ToLower(strings.TrimSpace(input)) == strings.ToLower(answer)
}

func (c *Controller) findCategory(id int64) (int, bool) {
	for i := range c.categories {
		if c.categories[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func findQuestion(questions []domain.Question, id int64) (domain.Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (c *Controller) clearRound() {
	c.hintIndex = 0
	c.draft = ""
	c.result = ResultUnset
	c.notice = nil
}

func (c *Controller) reset() {
	c.state = StateCategorySelection
	c.category = nil
	c.question = nil
	c.clearRound()
}
