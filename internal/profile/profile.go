// Package profile manages device profiles. Each profile owns its own local
// database, so two learners on one machine never share mastery state.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultID is the profile every device starts with.
const DefaultID = "default"

// Profile is one named learner on this device.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry is the stored profile list plus the active selection.
type Registry struct {
	CurrentID string    `json:"currentId"`
	Profiles  []Profile `json:"profiles"`
}

// Store reads and writes the profile registry file.
type Store struct {
	path string
}

// NewStore creates a store over the given registry file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the registry, initializing a single default profile when the
// file is missing or unreadable.
func (s *Store) Load() (*Registry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			reg := defaultRegistry()
			if err := s.Save(reg); err != nil {
				return nil, err
			}
			return reg, nil
		}
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(raw, &reg); err != nil || len(reg.Profiles) == 0 {
		reg := defaultRegistry()
		if err := s.Save(reg); err != nil {
			return nil, err
		}
		return reg, nil
	}
	return &reg, nil
}

// Save writes the registry back to disk.
func (s *Store) Save(reg *Registry) error {
	raw, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// Current returns the active profile, falling back to the first one.
func (reg *Registry) Current() Profile {
	for _, p := range reg.Profiles {
		if p.ID == reg.CurrentID {
			return p
		}
	}
	return reg.Profiles[0]
}

// Add appends a new profile with a fresh ID and makes it current.
func (reg *Registry) Add(name string) Profile {
	if name == "" {
		name = fmt.Sprintf("User %d", len(reg.Profiles)+1)
	}
	p := Profile{ID: uuid.New().String(), Name: name}
	reg.Profiles = append(reg.Profiles, p)
	reg.CurrentID = p.ID
	return p
}

// Remove deletes a profile. When the active profile is removed, the first
// remaining one becomes current.
func (reg *Registry) Remove(id string) {
	out := reg.Profiles[:0]
	for _, p := range reg.Profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	reg.Profiles = out
	if len(reg.Profiles) == 0 {
		*reg = *defaultRegistry()
		return
	}
	if reg.CurrentID == id {
		reg.CurrentID = reg.Profiles[0].ID
	}
}

// SetCurrent switches the active profile. Unknown IDs are ignored.
func (reg *Registry) SetCurrent(id string) {
	for _, p := range reg.Profiles {
		if p.ID == id {
			reg.CurrentID = id
			return
		}
	}
}

// DBPath maps a profile to its database file under the data directory. The
// default profile keeps the original unsuffixed name.
func DBPath(dataDir, profileID string) string {
	if profileID == "" || profileID == DefaultID {
		return filepath.Join(dataDir, "vocabtrainer.db")
	}
	return filepath.Join(dataDir, "vocabtrainer-"+profileID+".db")
}

func defaultRegistry() *Registry {
	return &Registry{
		CurrentID: DefaultID,
		Profiles:  []Profile{{ID: DefaultID, Name: "User 1"}},
	}
}
