// Package selection filters the vocabulary into session candidates and orders
// them by the configured strategy before a session starts.
package selection

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"vocabtrainer/internal/srs"
	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/vocab"
)

// ErrNoCandidates is returned when filtering and truncation leave nothing to
// study. Callers must surface this instead of starting an empty session.
var ErrNoCandidates = errors.New("no candidate words")

// SkillMode selects which skill a session (or review filter) targets.
type SkillMode string

const (
	// ModeMeaning targets meaning recall.
	ModeMeaning SkillMode = "meaning"
	// ModeSpelling targets spelling recall.
	ModeSpelling SkillMode = "spelling"
	// ModeBoth targets either skill (review qualification only).
	ModeBoth SkillMode = "both"
)

// Strategy is a session ordering strategy.
type Strategy string

const (
	// OrderRandom shuffles candidates uniformly.
	OrderRandom Strategy = "random"
	// OrderDue sorts by next review time, never-scheduled last.
	OrderDue Strategy = "due"
	// OrderUnstudied sorts by total attempt count, never-attempted first.
	OrderUnstudied Strategy = "unstudied"
	// OrderWeak sorts by weakness score, weakest first.
	OrderWeak Strategy = "weak"
)

// Filter restricts candidates by facet. An empty Levels set accepts every
// level; Category "all" (or empty) accepts every category.
type Filter struct {
	Levels   map[string]bool
	Category string
}

// BuildCandidates returns the items passing the facet filter.
func BuildCandidates(words []vocab.Item, f Filter) []vocab.Item {
	out := make([]vocab.Item, 0, len(words))
	for _, w := range words {
		if len(f.Levels) > 0 && !f.Levels[w.Level] {
			continue
		}
		if f.Category != "" && f.Category != "all" && w.Category != f.Category {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ReviewCandidates returns the items that qualify for review mode: meaning
// qualifies on any wrong answer (or, when includeAmbiguous is set, any partial
// answer); spelling qualifies on any wrong answer. Qualification is binary,
// ranking happens later in Order.
func ReviewCandidates(words []vocab.Item, recs map[int]*storage.ProgressRecord, mode SkillMode, includeAmbiguous bool) []vocab.Item {
	var out []vocab.Item
	for _, w := range words {
		rec := recs[w.ID]
		meaningBad := false
		spellingBad := false
		if rec != nil {
			meaningBad = rec.MeaningWrong > 0 || (includeAmbiguous && rec.MeaningPartial > 0)
			spellingBad = rec.SpellingWrong > 0
		}
		switch mode {
		case ModeMeaning:
			if meaningBad {
				out = append(out, w)
			}
		case ModeSpelling:
			if spellingBad {
				out = append(out, w)
			}
		case ModeBoth:
			if meaningBad || spellingBad {
				out = append(out, w)
			}
		}
	}
	return out
}

// Order returns the candidates arranged by the given strategy. Unknown
// strategies fall back to random. The input slice is not modified.
func Order(words []vocab.Item, recs map[int]*storage.ProgressRecord, mode SkillMode, strategy Strategy, rng *rand.Rand) []vocab.Item {
	list := make([]vocab.Item, len(words))
	copy(list, words)

	switch strategy {
	case OrderDue:
		sort.SliceStable(list, func(i, j int) bool {
			return dueTime(recs[list[i].ID], mode) < dueTime(recs[list[j].ID], mode)
		})
	case OrderUnstudied:
		sort.SliceStable(list, func(i, j int) bool {
			return attempts(recs[list[i].ID], mode) < attempts(recs[list[j].ID], mode)
		})
	case OrderWeak:
		sort.SliceStable(list, func(i, j int) bool {
			return score(recs[list[i].ID], mode) > score(recs[list[j].ID], mode)
		})
	default:
		shuffle(list, rng)
	}
	return list
}

// Take truncates an ordered candidate list to the requested session size.
// The size floors at 1; an empty result is ErrNoCandidates.
func Take(words []vocab.Item, n int) ([]vocab.Item, error) {
	if n < 1 {
		n = 1
	}
	if len(words) == 0 {
		return nil, ErrNoCandidates
	}
	if len(words) > n {
		words = words[:n]
	}
	return words, nil
}

// dueTime maps a record to a sortable next-review instant; never-scheduled
// records sort after everything else.
func dueTime(rec *storage.ProgressRecord, mode SkillMode) int64 {
	const never = int64(1<<63 - 1)
	if rec == nil {
		return never
	}
	var t *time.Time
	if mode == ModeSpelling {
		t = rec.SpellingNextReviewAt
	} else {
		t = rec.MeaningNextReviewAt
	}
	if t == nil {
		return never
	}
	return t.UnixNano()
}

func attempts(rec *storage.ProgressRecord, mode SkillMode) int {
	if rec == nil {
		return 0
	}
	if mode == ModeSpelling {
		return rec.SpellingAttempts()
	}
	return rec.MeaningAttempts()
}

func score(rec *storage.ProgressRecord, mode SkillMode) int {
	if mode == ModeSpelling {
		return srs.SpellingScore(rec)
	}
	return srs.MeaningScore(rec)
}

// shuffle is an in-place Fisher-Yates permutation.
func shuffle(list []vocab.Item, rng *rand.Rand) {
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	for i := len(list) - 1; i > 0; i-- {
		j := intn(i + 1)
		list[i], list[j] = list[j], list[i]
	}
}
