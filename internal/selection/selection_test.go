package selection

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/vocab"
)

func testWords() []vocab.Item {
	return []vocab.Item{
		{ID: 1, Word: "alpha", Level: "A1", Category: "nouns"},
		{ID: 2, Word: "beta", Level: "A1", Category: "verbs"},
		{ID: 3, Word: "gamma", Level: "B1", Category: "nouns"},
		{ID: 4, Word: "delta", Level: "B1", Category: "verbs"},
	}
}

func TestBuildCandidates(t *testing.T) {
	words := testWords()

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []int
	}{
		{"no filter", Filter{}, []int{1, 2, 3, 4}},
		{"category all", Filter{Category: "all"}, []int{1, 2, 3, 4}},
		{"by level", Filter{Levels: map[string]bool{"A1": true}}, []int{1, 2}},
		{"by category", Filter{Category: "nouns"}, []int{1, 3}},
		{"level and category", Filter{Levels: map[string]bool{"B1": true}, Category: "verbs"}, []int{4}},
		{"nothing matches", Filter{Category: "adjectives"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCandidates(words, tt.filter)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d candidates, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("candidate[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestReviewCandidates(t *testing.T) {
	words := testWords()
	recs := map[int]*storage.ProgressRecord{
		1: {WordID: 1, MeaningWrong: 1},
		2: {WordID: 2, MeaningPartial: 1},
		3: {WordID: 3, SpellingWrong: 1},
		// 4 has no record
	}

	tests := []struct {
		name             string
		mode             SkillMode
		includeAmbiguous bool
		wantIDs          []int
	}{
		{"meaning wrong only", ModeMeaning, false, []int{1}},
		{"meaning with partials", ModeMeaning, true, []int{1, 2}},
		{"spelling", ModeSpelling, false, []int{3}},
		{"both", ModeBoth, true, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReviewCandidates(words, recs, tt.mode, tt.includeAmbiguous)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d candidates, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("candidate[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestOrder_Due(t *testing.T) {
	words := testWords()
	soon := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := soon.Add(48 * time.Hour)
	recs := map[int]*storage.ProgressRecord{
		1: {WordID: 1, MeaningNextReviewAt: &later},
		2: {WordID: 2, MeaningNextReviewAt: &soon},
		// 3 and 4 never scheduled, must sort last
	}

	got := Order(words, recs, ModeMeaning, OrderDue, nil)
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("due order = [%d %d ...], want [2 1 ...]", got[0].ID, got[1].ID)
	}
	// Stable sort keeps input order for the never-scheduled tail.
	if got[2].ID != 3 || got[3].ID != 4 {
		t.Errorf("tail = [%d %d], want [3 4]", got[2].ID, got[3].ID)
	}
}

func TestOrder_Unstudied(t *testing.T) {
	words := testWords()
	recs := map[int]*storage.ProgressRecord{
		1: {WordID: 1, MeaningCorrect: 5},
		2: {WordID: 2, MeaningCorrect: 1, MeaningWrong: 1},
	}

	got := Order(words, recs, ModeMeaning, OrderUnstudied, nil)
	// 3 and 4 have zero attempts and come first in input order.
	wantIDs := []int{3, 4, 2, 1}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("order[%d].ID = %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestOrder_Weak(t *testing.T) {
	words := testWords()
	recs := map[int]*storage.ProgressRecord{
		1: {WordID: 1, MeaningWrong: 3},   // score 9
		2: {WordID: 2, MeaningCorrect: 4}, // score -4
		3: {WordID: 3, MeaningPartial: 1}, // score 2
	}

	got := Order(words, recs, ModeMeaning, OrderWeak, nil)
	wantIDs := []int{1, 3, 4, 2}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("order[%d].ID = %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestOrder_RandomDoesNotModifyInput(t *testing.T) {
	words := testWords()
	rng := rand.New(rand.NewSource(42))

	got := Order(words, nil, ModeMeaning, OrderRandom, rng)
	if len(got) != len(words) {
		t.Fatalf("got %d items, want %d", len(got), len(words))
	}
	seen := make(map[int]bool)
	for _, w := range got {
		seen[w.ID] = true
	}
	for _, w := range words {
		if !seen[w.ID] {
			t.Errorf("shuffle lost item %d", w.ID)
		}
	}
	for i, want := range []int{1, 2, 3, 4} {
		if words[i].ID != want {
			t.Errorf("input slice modified at %d", i)
		}
	}
}

func TestTake(t *testing.T) {
	words := testWords()

	got, err := Take(words, 2)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d items, want 2", len(got))
	}

	got, err = Take(words, 0)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("count 0 floors at 1, got %d items", len(got))
	}

	if _, err := Take(nil, 5); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Take(empty) error = %v, want ErrNoCandidates", err)
	}
}
