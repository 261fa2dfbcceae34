// Package vocab loads the static vocabulary dataset. The dataset is read-only
// at runtime; mastery state lives in storage, keyed by item ID.
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Item is a single vocabulary entry.
type Item struct {
	ID        int    `json:"id"`
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Meaning   string `json:"meaning"`
	ExampleEN string `json:"exampleEn"`
	ExampleJA string `json:"exampleJa"`
	Notes     string `json:"notes"`
}

// Dataset is the loaded word list plus its distinct facet values.
type Dataset struct {
	Words      []Item
	Levels     []string
	Categories []string
}

// Load reads the dataset from a JSON file. Rows without a positive ID or a
// non-empty word are dropped; the result is sorted by ID.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Parse(raw)
}

// Parse decodes dataset JSON. It accepts the same shape Load reads from disk.
func Parse(raw []byte) (*Dataset, error) {
	var rows []Item
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	words := make([]Item, 0, len(rows))
	for _, row := range rows {
		if row.ID <= 0 || row.Word == "" {
			continue
		}
		words = append(words, row)
	}
	sort.Slice(words, func(i, j int) bool { return words[i].ID < words[j].ID })

	return &Dataset{
		Words:      words,
		Levels:     distinct(words, func(it Item) string { return it.Level }),
		Categories: distinct(words, func(it Item) string { return it.Category }),
	}, nil
}

// ByID builds an index from item ID to item.
func (d *Dataset) ByID() map[int]Item {
	out := make(map[int]Item, len(d.Words))
	for _, w := range d.Words {
		out[w.ID] = w
	}
	return out
}

func distinct(words []Item, key func(Item) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		k := key(w)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
