// Package resource holds the themed word bank the host draws secret words
// from. The imposter hint is always derived from the theme, never from the
// word itself.
package resource

import (
	"fmt"

	"github.com/enescakir/emoji"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

type Word struct {
	Text       string
	Difficulty Difficulty
}

type Theme struct {
	ID    string
	Label string
	Badge string
	Words []Word
}

var ErrThemeNotFound = fmt.Errorf("theme not found")
var ErrNoWords = fmt.Errorf("no words for difficulty")

var Themes = []Theme{
	{
		ID:    "animals",
		Label: "Animals",
		Badge: emoji.Lion.String(),
		Words: []Word{
			{Text: "Lion", Difficulty: DifficultyEasy},
			{Text: "Elephant", Difficulty: DifficultyEasy},
			{Text: "Penguin", Difficulty: DifficultyEasy},
			{Text: "Dolphin", Difficulty: DifficultyEasy},
			{Text: "Giraffe", Difficulty: DifficultyNormal},
			{Text: "Octopus", Difficulty: DifficultyNormal},
			{Text: "Hedgehog", Difficulty: DifficultyNormal},
			{Text: "Chameleon", Difficulty: DifficultyHard},
			{Text: "Platypus", Difficulty: DifficultyHard},
			{Text: "Axolotl", Difficulty: DifficultyHard},
		},
	},
	{
		ID:    "food",
		Label: "Food",
		Badge: emoji.Pizza.String(),
		Words: []Word{
			{Text: "Pizza", Difficulty: DifficultyEasy},
			{Text: "Sushi", Difficulty: DifficultyEasy},
			{Text: "Pancake", Difficulty: DifficultyEasy},
			{Text: "Taco", Difficulty: DifficultyEasy},
			{Text: "Lasagna", Difficulty: DifficultyNormal},
			{Text: "Croissant", Difficulty: DifficultyNormal},
			{Text: "Dumpling", Difficulty: DifficultyNormal},
			{Text: "Ratatouille", Difficulty: DifficultyHard},
			{Text: "Tiramisu", Difficulty: DifficultyHard},
			{Text: "Gazpacho", Difficulty: DifficultyHard},
		},
	},
	{
		ID:    "places",
		Label: "Places",
		Badge: emoji.GlobeShowingEuropeAfrica.String(),
		Words: []Word{
			{Text: "Beach", Difficulty: DifficultyEasy},
			{Text: "Airport", Difficulty: DifficultyEasy},
			{Text: "Library", Difficulty: DifficultyEasy},
			{Text: "Castle", Difficulty: DifficultyNormal},
			{Text: "Volcano", Difficulty: DifficultyNormal},
			{Text: "Lighthouse", Difficulty: DifficultyNormal},
			{Text: "Catacombs", Difficulty: DifficultyHard},
			{Text: "Observatory", Difficulty: DifficultyHard},
		},
	},
	{
		ID:    "jobs",
		Label: "Jobs",
		Badge: emoji.ConstructionWorker.String(),
		Words: []Word{
			{Text: "Teacher", Difficulty: DifficultyEasy},
			{Text: "Pilot", Difficulty: DifficultyEasy},
			{Text: "Chef", Difficulty: DifficultyEasy},
			{Text: "Plumber", Difficulty: DifficultyNormal},
			{Text: "Architect", Difficulty: DifficultyNormal},
			{Text: "Beekeeper", Difficulty: DifficultyHard},
			{Text: "Cartographer", Difficulty: DifficultyHard},
		},
	},
	{
		ID:    "sports",
		Label: "Sports",
		Badge: emoji.SoccerBall.String(),
		Words: []Word{
			{Text: "Soccer", Difficulty: DifficultyEasy},
			{Text: "Tennis", Difficulty: DifficultyEasy},
			{Text: "Bowling", Difficulty: DifficultyEasy},
			{Text: "Curling", Difficulty: DifficultyNormal},
			{Text: "Fencing", Difficulty: DifficultyNormal},
			{Text: "Biathlon", Difficulty: DifficultyHard},
			{Text: "Parkour", Difficulty: DifficultyHard},
		},
	},
}

// FindTheme resolves a theme by id.
func FindTheme(id string) (Theme, error) {
	for _, theme := range Themes {
		if theme.ID == id {
			return theme, nil
		}
	}

	return Theme{}, ErrThemeNotFound
}

// Hint is the imposter-facing description of the round: the theme, never
// the word.
func (t Theme) Hint() string {
	return "Theme: " + t.Label + " " + t.Badge
}

// PickWord draws a word of the given difficulty from the theme; an empty
// difficulty draws from the whole theme. pick selects an index in [0,n).
func (t Theme) PickWord(difficulty Difficulty, pick func(n int) int) (string, error) {
	var pool []string
	for _, w := range t.Words {
		if difficulty == "" || w.Difficulty == difficulty {
			pool = append(pool, w.Text)
		}
	}
	if len(pool) == 0 {
		return "", ErrNoWords
	}

	return pool[pick(len(pool))], nil
}
