package sync

import (
	"testing"
	"time"

	"vocabtrainer/internal/storage"
)

func tp(t time.Time) *time.Time { return &t }

func TestFreshness(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  storage.ProgressRecord
		want time.Time
	}{
		{"all nil is epoch", storage.ProgressRecord{}, time.Time{}},
		{"updatedAt only", storage.ProgressRecord{UpdatedAt: tp(base)}, base},
		{
			"latest of the three wins",
			storage.ProgressRecord{
				UpdatedAt:      tp(base),
				MeaningLastAt:  tp(base.Add(2 * time.Hour)),
				SpellingLastAt: tp(base.Add(time.Hour)),
			},
			base.Add(2 * time.Hour),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := freshness(&tt.rec); !got.Equal(tt.want) {
				t.Errorf("freshness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeProgress(t *testing.T) {
	old := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)

	local := []storage.ProgressRecord{
		{WordID: 1, MeaningCorrect: 1, UpdatedAt: tp(newer)}, // local fresher
		{WordID: 2, MeaningCorrect: 2, UpdatedAt: tp(old)},   // remote fresher
		{WordID: 3, MeaningCorrect: 3, UpdatedAt: tp(old)},   // tie
		{WordID: 4, MeaningCorrect: 4, UpdatedAt: tp(old)},   // local only
	}
	remote := []storage.ProgressRecord{
		{WordID: 1, MeaningCorrect: 10, UpdatedAt: tp(old)},
		{WordID: 2, MeaningCorrect: 20, UpdatedAt: tp(newer)},
		{WordID: 3, MeaningCorrect: 30, UpdatedAt: tp(old)},
		{WordID: 5, MeaningCorrect: 50, UpdatedAt: tp(old)}, // remote only
	}

	merged := mergeProgress(local, remote)
	byID := make(map[int]storage.ProgressRecord, len(merged))
	for _, rec := range merged {
		byID[rec.WordID] = rec
	}

	if len(merged) != 5 {
		t.Fatalf("got %d records, want 5", len(merged))
	}
	if byID[1].MeaningCorrect != 1 {
		t.Errorf("word 1: fresher local side must win, got %d", byID[1].MeaningCorrect)
	}
	if byID[2].MeaningCorrect != 20 {
		t.Errorf("word 2: fresher remote side must win, got %d", byID[2].MeaningCorrect)
	}
	if byID[3].MeaningCorrect != 30 {
		t.Errorf("word 3: ties go to remote, got %d", byID[3].MeaningCorrect)
	}
	if byID[4].MeaningCorrect != 4 {
		t.Error("word 4: local-only record must be preserved")
	}
	if byID[5].MeaningCorrect != 50 {
		t.Error("word 5: remote-only record must be adopted")
	}
}

func TestMergeProgress_GradingTimeCountsAsFreshness(t *testing.T) {
	old := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)

	// Remote's UpdatedAt is older, but a later meaningLastAt makes the record
	// fresher overall.
	local := []storage.ProgressRecord{{WordID: 1, MeaningCorrect: 1, UpdatedAt: tp(old)}}
	remote := []storage.ProgressRecord{{WordID: 1, MeaningCorrect: 9, UpdatedAt: tp(old.Add(-time.Hour)), MeaningLastAt: tp(newer)}}

	merged := mergeProgress(local, remote)
	if len(merged) != 1 || merged[0].MeaningCorrect != 9 {
		t.Errorf("merged = %+v, want remote record", merged)
	}
}

func TestMergeProgress_EmptySides(t *testing.T) {
	recs := []storage.ProgressRecord{{WordID: 1}}

	if got := mergeProgress(nil, recs); len(got) != 1 {
		t.Errorf("empty local: got %d records, want 1", len(got))
	}
	if got := mergeProgress(recs, nil); len(got) != 1 {
		t.Errorf("empty remote: got %d records, want 1", len(got))
	}
	if got := mergeProgress(nil, nil); len(got) != 0 {
		t.Errorf("both empty: got %d records, want 0", len(got))
	}
}
