package session

import (
	"context"
	"errors"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"vocabtrainer/internal/selection"
	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/srs"
	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/vocab"
)

type fakePusher struct {
	mu      gosync.Mutex
	reasons []string
}

func (f *fakePusher) SchedulePush(reason string) {
	f.mu.Lock()
	f.reasons = append(f.reasons, reason)
	f.mu.Unlock()
}

func testDataset(t *testing.T) *vocab.Dataset {
	t.Helper()
	ds, err := vocab.Parse([]byte(`[
		{"id": 1, "word": "alpha", "level": "A1", "category": "nouns", "meaning": "m1"},
		{"id": 2, "word": "beta", "level": "A1", "category": "verbs", "meaning": "m2"},
		{"id": 3, "word": "gamma", "level": "B1", "category": "nouns", "meaning": "m3"}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func testSession(t *testing.T) (*Session, *fakePusher, *storage.SettingsRepo) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	pusher := &fakePusher{}
	sets := storage.NewSettingsRepo(db)
	sess := New(testDataset(t), storage.NewProgressRepo(db), sets, storage.NewHistoryRepo(db), pusher, nil)
	return sess, pusher, sets
}

func TestGradeMeaning(t *testing.T) {
	sess, pusher, _ := testSession(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sess.now = func() time.Time { return now }

	rec, err := sess.GradeMeaning(ctx, 1, srs.MeaningCorrect)
	if err != nil {
		t.Fatalf("GradeMeaning() error = %v", err)
	}
	if rec.MeaningStreak != 1 || rec.MeaningCorrect != 1 {
		t.Errorf("record = %+v", rec)
	}
	wantNext := now.Add(24 * time.Hour)
	if rec.MeaningNextReviewAt == nil || !rec.MeaningNextReviewAt.Equal(wantNext) {
		t.Errorf("next review = %v, want %v", rec.MeaningNextReviewAt, wantNext)
	}

	if len(pusher.reasons) != 1 || pusher.reasons[0] != "grade" {
		t.Errorf("scheduled pushes = %v, want [grade]", pusher.reasons)
	}

	events, err := sess.History(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != "grade_meaning" || events[0].Label != "alpha" {
		t.Errorf("history = %+v", events)
	}
}

func TestGradeMeaning_WrongPolicyFromSettings(t *testing.T) {
	sess, _, sets := testSession(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sess.now = func() time.Time { return now }

	if err := sets.Set(ctx, settings.KeyMeaningWrongNext, "tomorrow"); err != nil {
		t.Fatal(err)
	}

	rec, err := sess.GradeMeaning(ctx, 1, srs.MeaningWrong)
	if err != nil {
		t.Fatal(err)
	}
	wantNext := now.Add(24 * time.Hour)
	if rec.MeaningNextReviewAt == nil || !rec.MeaningNextReviewAt.Equal(wantNext) {
		t.Errorf("next review = %v, want tomorrow per setting", rec.MeaningNextReviewAt)
	}
}

func TestGradeMeaning_UnknownWord(t *testing.T) {
	sess, _, _ := testSession(t)

	if _, err := sess.GradeMeaning(context.Background(), 99, srs.MeaningCorrect); err == nil {
		t.Fatal("expected error for unknown word id")
	}
}

func TestGradeSpelling(t *testing.T) {
	sess, _, _ := testSession(t)
	ctx := context.Background()

	grade, rec, err := sess.GradeSpelling(ctx, 2, " BETA ")
	if err != nil {
		t.Fatalf("GradeSpelling() error = %v", err)
	}
	if grade != srs.SpellingCorrect {
		t.Errorf("grade = %v, want correct after normalization", grade)
	}
	if rec.SpellingCorrect != 1 || rec.SpellingStreak != 1 {
		t.Errorf("record = %+v", rec)
	}

	grade, rec, err = sess.GradeSpelling(ctx, 2, "betta")
	if err != nil {
		t.Fatal(err)
	}
	if grade != srs.SpellingWrong || rec.SpellingWrong != 1 || rec.SpellingStreak != 0 {
		t.Errorf("grade = %v, record = %+v", grade, rec)
	}
}

func TestToggleFlags(t *testing.T) {
	sess, pusher, _ := testSession(t)
	ctx := context.Background()

	fav, err := sess.ToggleFavorite(ctx, 1)
	if err != nil || !fav {
		t.Fatalf("ToggleFavorite() = %v, %v, want true", fav, err)
	}
	fav, err = sess.ToggleFavorite(ctx, 1)
	if err != nil || fav {
		t.Fatalf("second ToggleFavorite() = %v, %v, want false", fav, err)
	}

	learned, err := sess.ToggleLearned(ctx, 1)
	if err != nil || !learned {
		t.Fatalf("ToggleLearned() = %v, %v, want true", learned, err)
	}

	rec, err := sess.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.IsFavorite || !rec.IsLearned {
		t.Errorf("record flags = fav=%v learned=%v", rec.IsFavorite, rec.IsLearned)
	}
	if rec.UpdatedAt == nil {
		t.Error("toggle must stamp UpdatedAt so the change wins a sync merge")
	}

	for _, r := range pusher.reasons {
		if r != "flag" {
			t.Errorf("unexpected push reason %q", r)
		}
	}
}

func TestBuildQueue(t *testing.T) {
	sess, _, _ := testSession(t)
	ctx := context.Background()

	queue, err := sess.BuildQueue(ctx, QueueOptions{
		Filter:   selection.Filter{Category: "nouns"},
		Mode:     selection.ModeMeaning,
		Strategy: selection.OrderDue,
		Count:    10,
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	if len(queue) != 2 {
		t.Errorf("got %d items, want 2 nouns", len(queue))
	}

	_, err = sess.BuildQueue(ctx, QueueOptions{
		Filter: selection.Filter{Category: "adjectives"},
		Count:  10,
	})
	if !errors.Is(err, selection.ErrNoCandidates) {
		t.Errorf("error = %v, want ErrNoCandidates", err)
	}
}

func TestBuildQueue_ReviewMode(t *testing.T) {
	sess, _, sets := testSession(t)
	ctx := context.Background()

	if _, err := sess.GradeMeaning(ctx, 1, srs.MeaningWrong); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.GradeMeaning(ctx, 2, srs.MeaningPartial); err != nil {
		t.Fatal(err)
	}

	queue, err := sess.BuildQueue(ctx, QueueOptions{
		Mode:     selection.ModeMeaning,
		Strategy: selection.OrderWeak,
		Review:   true,
		Count:    10,
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("got %d review items, want 2 (partials included by default)", len(queue))
	}
	if queue[0].ID != 1 {
		t.Errorf("first item = %d, want the wrong-answered word first", queue[0].ID)
	}

	// Excluding ambiguous answers drops the partial-only word.
	if err := sets.Set(ctx, settings.KeyReviewAmbiguous, false); err != nil {
		t.Fatal(err)
	}
	queue, err = sess.BuildQueue(ctx, QueueOptions{
		Mode:     selection.ModeMeaning,
		Strategy: selection.OrderWeak,
		Review:   true,
		Count:    10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 1 || queue[0].ID != 1 {
		t.Errorf("queue = %v, want only the wrong-answered word", queue)
	}
}

func TestDueSummaryAndWeakest(t *testing.T) {
	sess, _, _ := testSession(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sess.now = func() time.Time { return now }

	if _, err := sess.GradeMeaning(ctx, 1, srs.MeaningWrong); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.GradeMeaning(ctx, 2, srs.MeaningCorrect); err != nil {
		t.Fatal(err)
	}

	sum, err := sess.DueSummary(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	// Wrong with "today" policy is due immediately; correct is due in a day.
	if sum.MeaningDue != 1 || sum.SpellingDue != 0 {
		t.Errorf("summary = %+v", sum)
	}

	weak, err := sess.Weakest(ctx, selection.ModeMeaning, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(weak) != 1 || weak[0].Item.ID != 1 || weak[0].Score != 3 {
		t.Errorf("weakest = %+v", weak)
	}
}

func TestInvalidateReloadsFromStore(t *testing.T) {
	sess, _, _ := testSession(t)
	ctx := context.Background()

	if _, err := sess.GradeMeaning(ctx, 1, srs.MeaningCorrect); err != nil {
		t.Fatal(err)
	}

	// Simulate a sync merge writing behind the cache.
	merged := storage.NewProgressRecord(1)
	merged.MeaningCorrect = 42
	if err := sess.progress.Put(ctx, merged); err != nil {
		t.Fatal(err)
	}

	rec, err := sess.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.MeaningCorrect != 1 {
		t.Fatalf("cache bypassed unexpectedly, got %d", rec.MeaningCorrect)
	}

	sess.Invalidate()
	rec, err = sess.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.MeaningCorrect != 42 {
		t.Errorf("after invalidate got %d, want reloaded store value 42", rec.MeaningCorrect)
	}
}

func TestUseSpellingHint(t *testing.T) {
	sess, _, _ := testSession(t)
	ctx := context.Background()

	if err := sess.UseSpellingHint(ctx, 3); err != nil {
		t.Fatalf("UseSpellingHint() error = %v", err)
	}
	rec, err := sess.Record(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if rec.SpellingHintUsed != 1 {
		t.Errorf("SpellingHintUsed = %d, want 1", rec.SpellingHintUsed)
	}
	if rec.UpdatedAt == nil {
		t.Error("hint use must stamp UpdatedAt")
	}
}

func TestClearAll(t *testing.T) {
	sess, _, sets := testSession(t)
	ctx := context.Background()

	if _, err := sess.GradeMeaning(ctx, 1, srs.MeaningCorrect); err != nil {
		t.Fatal(err)
	}
	if err := sets.Set(ctx, settings.KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}

	if err := sess.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	rec, err := sess.Record(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.MeaningCorrect != 0 {
		t.Errorf("record survived clear: %+v", rec)
	}
	all, err := sets.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("settings survived clear: %v", all)
	}
	events, err := sess.History(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("history survived clear: %v", events)
	}
}
