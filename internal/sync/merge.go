package sync

import (
	"time"

	"vocabtrainer/internal/storage"
)

// freshness is the merge comparison timestamp for a record: the latest of its
// overall update time and the two per-skill grading times, epoch when all are
// absent.
func freshness(rec *storage.ProgressRecord) time.Time {
	var t time.Time
	for _, c := range []*time.Time{rec.UpdatedAt, rec.MeaningLastAt, rec.SpellingLastAt} {
		if c != nil && c.After(t) {
			t = *c
		}
	}
	return t
}

// mergeProgress reconciles pulled records with local ones. Per record the
// fresher side wins wholesale, no field-level merging, with ties going to
// remote. Local records unknown to the remote are preserved.
//
// Note the asymmetry with the server: the server applies last-write-wins to
// the whole payload per keyId, while this runs per record. A device that loses
// a per-record race can still have its next whole-payload push rejected even
// though some of its records are newer. Known boundary, covered in tests.
func mergeProgress(local, remote []storage.ProgressRecord) []storage.ProgressRecord {
	localByID := make(map[int]storage.ProgressRecord, len(local))
	order := make([]int, 0, len(local))
	for _, rec := range local {
		localByID[rec.WordID] = rec
		order = append(order, rec.WordID)
	}

	merged := make([]storage.ProgressRecord, 0, len(local)+len(remote))
	for _, rp := range remote {
		lp, ok := localByID[rp.WordID]
		if !ok {
			merged = append(merged, rp)
			continue
		}
		if !freshness(&rp).Before(freshness(&lp)) {
			merged = append(merged, rp)
		} else {
			merged = append(merged, lp)
		}
		delete(localByID, rp.WordID)
	}
	for _, id := range order {
		if rest, ok := localByID[id]; ok {
			merged = append(merged, rest)
		}
	}
	return merged
}
