// Package session owns the in-memory learning session: a cache over the
// progress store, grading orchestration, and queue building. All mastery
// reads during a session go through the cache; it is invalidated when a sync
// merge replaces the underlying records.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	"vocabtrainer/internal/selection"
	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/srs"
	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/vocab"
)

// PushScheduler is the sync manager surface a session needs: scheduling a
// debounced push after a mutation.
type PushScheduler interface {
	SchedulePush(reason string)
}

// Session coordinates grading, flags and queue building for one loaded
// dataset. Grading calls for a single word are serialized.
type Session struct {
	dataset  *vocab.Dataset
	items    map[int]vocab.Item
	progress storage.ProgressStore
	settings storage.SettingsStore
	history  storage.HistoryStore
	pusher   PushScheduler
	logger   *slog.Logger
	now      func() time.Time

	mu     gosync.Mutex
	cache  map[int]*storage.ProgressRecord
	loaded bool
}

// New creates a session over the given dataset and stores. pusher may be nil
// when sync is not wired (imports, tests).
func New(ds *vocab.Dataset, progress storage.ProgressStore, sets storage.SettingsStore, history storage.HistoryStore, pusher PushScheduler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		dataset:  ds,
		items:    ds.ByID(),
		progress: progress,
		settings: sets,
		history:  history,
		pusher:   pusher,
		logger:   logger,
		now:      time.Now,
	}
}

// Dataset returns the loaded dataset.
func (s *Session) Dataset() *vocab.Dataset {
	return s.dataset
}

// Invalidate drops the record cache so the next read reloads from the store.
// Called after a sync merge or bulk import completes.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.loaded = false
	s.mu.Unlock()
}

// Settings returns the current settings with defaults applied.
func (s *Session) Settings(ctx context.Context) (settings.Settings, error) {
	raw, err := s.settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return settings.WithDefaults(raw), nil
}

// Record returns the cached record for a word, creating the all-zero default
// for words never graded. The returned record is live cache state; callers
// must not mutate it outside Session methods.
func (s *Session) Record(ctx context.Context, wordID int) (*storage.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(ctx, wordID)
}

// GradeMeaning applies one meaning-skill grade: update, persist, log, then
// schedule an auto push.
func (s *Session) GradeMeaning(ctx context.Context, wordID int, grade srs.MeaningGrade) (*storage.ProgressRecord, error) {
	word, ok := s.items[wordID]
	if !ok {
		return nil, fmt.Errorf("unknown word id %d", wordID)
	}

	cfg, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	policy := srs.WrongPolicy(cfg.String(settings.KeyMeaningWrongNext, string(srs.WrongDueToday)))

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordLocked(ctx, wordID)
	if err != nil {
		return nil, err
	}
	srs.ApplyMeaningGrade(rec, grade, s.now(), policy)
	if err := s.progress.Put(ctx, rec); err != nil {
		return nil, err
	}

	s.logEvent(ctx, "grade_meaning", word.Word, wordID)
	s.schedulePush("grade")
	return rec, nil
}

// GradeSpelling grades a typed answer against the word's spelling and applies
// the result. The computed grade is returned alongside the updated record.
func (s *Session) GradeSpelling(ctx context.Context, wordID int, answer string) (srs.SpellingGrade, *storage.ProgressRecord, error) {
	word, ok := s.items[wordID]
	if !ok {
		return srs.SpellingWrong, nil, fmt.Errorf("unknown word id %d", wordID)
	}

	cfg, err := s.Settings(ctx)
	if err != nil {
		return srs.SpellingWrong, nil, err
	}
	policy := srs.WrongPolicy(cfg.String(settings.KeySpellingWrongNext, string(srs.WrongDueToday)))
	grade := srs.CheckSpelling(answer, word.Word)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordLocked(ctx, wordID)
	if err != nil {
		return grade, nil, err
	}
	srs.ApplySpellingGrade(rec, grade, s.now(), policy)
	if err := s.progress.Put(ctx, rec); err != nil {
		return grade, nil, err
	}

	s.logEvent(ctx, "grade_spelling", word.Word, wordID)
	s.schedulePush("grade")
	return grade, rec, nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Session) ToggleFavorite(ctx context.Context, wordID int) (bool, error) {
	return s.toggleFlag(ctx, wordID, "flag_favorite", func(rec *storage.ProgressRecord) bool {
		rec.IsFavorite = !rec.IsFavorite
		return rec.IsFavorite
	})
}

// ToggleLearned flips the learned flag and returns the new value.
func (s *Session) ToggleLearned(ctx context.Context, wordID int) (bool, error) {
	return s.toggleFlag(ctx, wordID, "flag_learned", func(rec *storage.ProgressRecord) bool {
		rec.IsLearned = !rec.IsLearned
		return rec.IsLearned
	})
}

// UseSpellingHint records that a spelling hint was shown for a word.
func (s *Session) UseSpellingHint(ctx context.Context, wordID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordLocked(ctx, wordID)
	if err != nil {
		return err
	}
	rec.SpellingHintUsed++
	now := s.now()
	rec.UpdatedAt = &now
	return s.progress.Put(ctx, rec)
}

// DueSummary counts records currently due for each skill.
func (s *Session) DueSummary(ctx context.Context, now time.Time) (srs.DueSummary, error) {
	recs, err := s.allRecords(ctx)
	if err != nil {
		return srs.DueSummary{}, err
	}
	return srs.SummarizeDue(recs, now), nil
}

// QueueOptions selects and orders the words for a session.
type QueueOptions struct {
	Filter   selection.Filter
	Mode     selection.SkillMode
	Strategy selection.Strategy
	Review   bool
	Count    int
}

// BuildQueue filters, optionally restricts to review candidates, orders and
// truncates the study queue. Returns selection.ErrNoCandidates when nothing
// qualifies.
func (s *Session) BuildQueue(ctx context.Context, opts QueueOptions) ([]vocab.Item, error) {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.recordMap(ctx)
	if err != nil {
		return nil, err
	}

	candidates := selection.BuildCandidates(s.dataset.Words, opts.Filter)
	if opts.Review {
		includeAmbiguous := cfg.Bool(settings.KeyReviewAmbiguous, true)
		candidates = selection.ReviewCandidates(candidates, recs, opts.Mode, includeAmbiguous)
	}
	ordered := selection.Order(candidates, recs, opts.Mode, opts.Strategy, nil)
	return selection.Take(ordered, opts.Count)
}

// WeakEntry is one row of the weakest-items report.
type WeakEntry struct {
	Item  vocab.Item
	Score int
}

// Weakest returns the items with positive weakness score for a skill, worst
// first, capped to topN (20 when topN <= 0). The cap is presentational.
func (s *Session) Weakest(ctx context.Context, mode selection.SkillMode, topN int) ([]WeakEntry, error) {
	if topN <= 0 {
		topN = 20
	}
	recs, err := s.recordMap(ctx)
	if err != nil {
		return nil, err
	}

	var out []WeakEntry
	for _, w := range s.dataset.Words {
		rec := recs[w.ID]
		if rec == nil {
			continue
		}
		var score int
		if mode == selection.ModeSpelling {
			score = srs.SpellingScore(rec)
		} else {
			score = srs.MeaningScore(rec)
		}
		if score > 0 {
			out = append(out, WeakEntry{Item: w, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// History returns recent activity log entries, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]storage.HistoryEvent, error) {
	return s.history.Recent(ctx, limit)
}

// ClearAll wipes progress, settings and history. Irreversible.
func (s *Session) ClearAll(ctx context.Context) error {
	if err := s.progress.Clear(ctx); err != nil {
		return err
	}
	if err := s.settings.Clear(ctx); err != nil {
		return err
	}
	if err := s.history.Clear(ctx); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

func (s *Session) toggleFlag(ctx context.Context, wordID int, event string, flip func(*storage.ProgressRecord) bool) (bool, error) {
	word, ok := s.items[wordID]
	if !ok {
		return false, fmt.Errorf("unknown word id %d", wordID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordLocked(ctx, wordID)
	if err != nil {
		return false, err
	}
	val := flip(rec)
	now := s.now()
	rec.UpdatedAt = &now
	if err := s.progress.Put(ctx, rec); err != nil {
		return false, err
	}

	s.logEvent(ctx, event, word.Word, wordID)
	s.schedulePush("flag")
	return val, nil
}

// recordLocked returns the cached record for a word, lazily creating the
// default. Caller holds s.mu.
func (s *Session) recordLocked(ctx context.Context, wordID int) (*storage.ProgressRecord, error) {
	if err := s.ensureCacheLocked(ctx); err != nil {
		return nil, err
	}
	if rec, ok := s.cache[wordID]; ok {
		return rec, nil
	}
	rec := storage.NewProgressRecord(wordID)
	s.cache[wordID] = rec
	return rec, nil
}

func (s *Session) ensureCacheLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	recs, err := s.progress.GetAll(ctx)
	if err != nil {
		return err
	}
	s.cache = make(map[int]*storage.ProgressRecord, len(recs))
	for i := range recs {
		rec := recs[i]
		s.cache[rec.WordID] = &rec
	}
	s.loaded = true
	return nil
}

func (s *Session) recordMap(ctx context.Context) (map[int]*storage.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCacheLocked(ctx); err != nil {
		return nil, err
	}
	out := make(map[int]*storage.ProgressRecord, len(s.cache))
	for id, rec := range s.cache {
		out[id] = rec
	}
	return out, nil
}

func (s *Session) allRecords(ctx context.Context) ([]storage.ProgressRecord, error) {
	recs, err := s.recordMap(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]storage.ProgressRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *Session) logEvent(ctx context.Context, typ, label string, wordID int) {
	if s.history == nil {
		return
	}
	ev := &storage.HistoryEvent{TS: s.now(), Type: typ, Label: label, WordID: wordID}
	if err := s.history.Add(ctx, ev); err != nil {
		s.logger.Warn("failed to log history event", "type", typ, "error", err)
	}
}

func (s *Session) schedulePush(reason string) {
	if s.pusher != nil {
		s.pusher.SchedulePush(reason)
	}
}
