package storage

import "time"

// ProgressRecord holds the per-word mastery state for both skills.
// JSON field names are the sync wire format and must stay stable:
// encrypted sync payloads produced by other devices carry these names.
type ProgressRecord struct {
	WordID               int        `json:"wordId"`
	UpdatedAt            *time.Time `json:"updatedAt"`
	MeaningCorrect       int        `json:"meaningCorrect"`
	MeaningPartial       int        `json:"meaningPartial"`
	MeaningWrong         int        `json:"meaningWrong"`
	MeaningStreak        int        `json:"meaningStreak"`
	MeaningLastAt        *time.Time `json:"meaningLastAt"`
	MeaningNextReviewAt  *time.Time `json:"meaningNextReviewAt"`
	SpellingCorrect      int        `json:"spellingCorrect"`
	SpellingWrong        int        `json:"spellingWrong"`
	SpellingStreak       int        `json:"spellingStreak"`
	SpellingLastAt       *time.Time `json:"spellingLastAt"`
	SpellingNextReviewAt *time.Time `json:"spellingNextReviewAt"`
	SpellingHintUsed     int        `json:"spellingHintUsed"`
	IsFavorite           bool       `json:"isFavorite"`
	IsLearned            bool       `json:"isLearned"`
}

// NewProgressRecord returns the all-zero record created lazily on first
// access to a word that has never been graded.
func NewProgressRecord(wordID int) *ProgressRecord {
	return &ProgressRecord{WordID: wordID}
}

// MeaningAttempts is the total number of meaning-skill attempts.
func (p *ProgressRecord) MeaningAttempts() int {
	return p.MeaningCorrect + p.MeaningPartial + p.MeaningWrong
}

// SpellingAttempts is the total number of spelling-skill attempts.
func (p *ProgressRecord) SpellingAttempts() int {
	return p.SpellingCorrect + p.SpellingWrong
}

// HistoryEvent is one entry in the append-only activity log.
type HistoryEvent struct {
	ID     int64     `json:"id"`
	TS     time.Time `json:"ts"`
	Type   string    `json:"type"`
	Label  string    `json:"label"`
	WordID int       `json:"wordId,omitempty"`
}
