// Package srs implements the spaced-repetition state machine: grade
// transitions, the review interval table, due predicates and weakness scores.
// All functions are pure; persistence belongs to the caller.
package srs

import (
	"strings"
	"time"

	"vocabtrainer/internal/storage"
)

// MeaningGrade is the outcome of one meaning-recall attempt.
type MeaningGrade int

const (
	// MeaningCorrect is a fully correct answer.
	MeaningCorrect MeaningGrade = iota
	// MeaningPartial is a partially correct (ambiguous) answer.
	MeaningPartial
	// MeaningWrong is an incorrect answer.
	MeaningWrong
)

// SpellingGrade is the outcome of one spelling-recall attempt. Spelling is
// binary; there is no partial grade.
type SpellingGrade int

const (
	// SpellingCorrect is an exact match after normalization.
	SpellingCorrect SpellingGrade = iota
	// SpellingWrong is any other answer.
	SpellingWrong
)

// WrongPolicy controls when an incorrectly answered word comes due again.
type WrongPolicy string

const (
	// WrongDueToday makes a wrong answer due immediately.
	WrongDueToday WrongPolicy = "today"
	// WrongDueTomorrow makes a wrong answer due the next day.
	WrongDueTomorrow WrongPolicy = "tomorrow"
)

const day = 24 * time.Hour

// IntervalDays returns the review interval for a correct-answer streak.
// The step table is fixed: 1, 3, 7, 14 days, capped at 30.
func IntervalDays(streak int) int {
	switch {
	case streak <= 1:
		return 1
	case streak == 2:
		return 3
	case streak == 3:
		return 7
	case streak == 4:
		return 14
	default:
		return 30
	}
}

// ApplyMeaningGrade applies one meaning-skill grading event to a record.
// A correct answer extends the streak and schedules by the interval table;
// partial and wrong answers reset the streak. Wrong answers come due per the
// configured policy.
func ApplyMeaningGrade(rec *storage.ProgressRecord, grade MeaningGrade, now time.Time, wrongPolicy WrongPolicy) {
	rec.MeaningLastAt = timePtr(now)
	rec.UpdatedAt = timePtr(now)

	switch grade {
	case MeaningCorrect:
		rec.MeaningStreak++
		rec.MeaningCorrect++
		rec.MeaningNextReviewAt = timePtr(now.Add(time.Duration(IntervalDays(rec.MeaningStreak)) * day))
	case MeaningPartial:
		rec.MeaningStreak = 0
		rec.MeaningPartial++
		rec.MeaningNextReviewAt = timePtr(now.Add(day))
	default:
		rec.MeaningStreak = 0
		rec.MeaningWrong++
		rec.MeaningNextReviewAt = timePtr(nextForWrong(now, wrongPolicy))
	}
}

// ApplySpellingGrade applies one spelling-skill grading event to a record.
func ApplySpellingGrade(rec *storage.ProgressRecord, grade SpellingGrade, now time.Time, wrongPolicy WrongPolicy) {
	rec.SpellingLastAt = timePtr(now)
	rec.UpdatedAt = timePtr(now)

	if grade == SpellingCorrect {
		rec.SpellingStreak++
		rec.SpellingCorrect++
		rec.SpellingNextReviewAt = timePtr(now.Add(time.Duration(IntervalDays(rec.SpellingStreak)) * day))
		return
	}
	rec.SpellingStreak = 0
	rec.SpellingWrong++
	rec.SpellingNextReviewAt = timePtr(nextForWrong(now, wrongPolicy))
}

func nextForWrong(now time.Time, policy WrongPolicy) time.Time {
	if policy == WrongDueTomorrow {
		return now.Add(day)
	}
	return now
}

// MeaningScore is the meaning-skill weakness score. Higher means weaker;
// scores can go negative for well-known words.
func MeaningScore(rec *storage.ProgressRecord) int {
	if rec == nil {
		return 0
	}
	return rec.MeaningWrong*3 + rec.MeaningPartial*2 - rec.MeaningCorrect
}

// SpellingScore is the spelling-skill weakness score.
func SpellingScore(rec *storage.ProgressRecord) int {
	if rec == nil {
		return 0
	}
	return rec.SpellingWrong*3 - rec.SpellingCorrect
}

// IsDue reports whether a scheduled timestamp has passed. A word that was
// never scheduled (nil timestamp) is not due.
func IsDue(t *time.Time, now time.Time) bool {
	if t == nil {
		return false
	}
	return !t.After(now)
}

// DueSummary holds per-skill due counts for a set of records.
type DueSummary struct {
	MeaningDue  int
	SpellingDue int
}

// SummarizeDue counts how many records are due for each skill.
func SummarizeDue(recs []storage.ProgressRecord, now time.Time) DueSummary {
	var sum DueSummary
	for i := range recs {
		if IsDue(recs[i].MeaningNextReviewAt, now) {
			sum.MeaningDue++
		}
		if IsDue(recs[i].SpellingNextReviewAt, now) {
			sum.SpellingDue++
		}
	}
	return sum
}

// NormalizeWord prepares a word for spelling comparison: surrounding
// whitespace is trimmed and the word is lowercased.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// CheckSpelling grades a typed answer against the expected word.
func CheckSpelling(answer, word string) SpellingGrade {
	if NormalizeWord(answer) == NormalizeWord(word) {
		return SpellingCorrect
	}
	return SpellingWrong
}

func timePtr(t time.Time) *time.Time {
	return &t
}
