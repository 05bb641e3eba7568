package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/hint-trivia/internal/domain"
)

type seedQuestion struct {
	answer string
	hints  []string
}

type seedCategory struct {
	name        string
	description string
	questions   []seedQuestion
}

var starterContent = []seedCategory{
	{
		name:        "Capitals",
		description: "Guess the capital city",
		questions: []seedQuestion{
			{answer: "Paris", hints: []string{"Eiffel Tower", "France"}},
			{answer: "Bangkok", hints: []string{"Tuk-tuk", "Chao Phraya river", "Thailand"}},
			{answer: "Tokyo", hints: []string{"Shibuya crossing", "Japan"}},
		},
	},
	{
		name:        "Animals",
		description: "Name the animal from its clues",
		questions: []seedQuestion{
			{answer: "Penguin", hints: []string{"Cannot fly", "Antarctica", "Tuxedo"}},
			{answer: "Elephant", hints: []string{"Trunk", "Largest land animal"}},
		},
	},
}

// Seed loads the starter categories. Existing content is left alone unless
// force is set, in which case every category is deleted first. It returns
// the number of categories created.
func (s *Service) Seed(ctx context.Context, force bool) (int, error) {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 && !force {
		slog.Info("Content already present, skipping seed", "categories", len(existing))
		return 0, nil
	}
	for _, c := range existing {
		if err := s.DeleteCategory(ctx, c.ID); err != nil {
			return 0, fmt.Errorf("clear category %d: %w", c.ID, err)
		}
	}

	for _, sc := range starterContent {
		cat := &domain.Category{Name: sc.name, Description: sc.description, IsVisible: true}
		if err := s.CreateCategory(ctx, cat); err != nil {
			return 0, fmt.Errorf("seed category %s: %w", sc.name, err)
		}
		for _, sq := range sc.questions {
			q := &domain.Question{
				Answer:     sq.answer,
				CategoryID: cat.ID,
				IsVisible:  true,
				Hints:      domain.HintsFromText(sq.hints),
			}
			if err := s.CreateQuestion(ctx, q); err != nil {
				return 0, fmt.Errorf("seed question %s: %w", sq.answer, err)
			}
		}
	}
	slog.Info("Seeded starter content", "categories", len(starterContent))
	return len(starterContent), nil
}
