// Package settings defines the user settings map, its defaults, and the
// single declared partition between synced and device-local keys. Key names
// are wire names: synced settings round-trip through encrypted sync payloads
// and must not change.
package settings

// Synced setting keys.
const (
	KeyShowExample      = "showExampleOnMeaningAnswer"
	KeyShowNotes        = "showNotesOnMeaningAnswer"
	KeyTheme            = "theme"
	KeyMeaningWrongNext = "meaningXNext"
	KeySpellingWrongNext = "spellingXNext"
	KeySpellingPrompt   = "spellingPromptMode"
	KeyReviewAmbiguous  = "reviewIncludeTriangle"
)

// Device-local setting keys. These never enter a sync payload and are never
// overwritten by a pulled one.
const (
	KeySyncEndpoint  = "syncEndpoint"
	KeySyncKey       = "syncKey"
	KeySyncAuto      = "syncAuto"
	KeySyncLastAt    = "syncLastAt"
	KeySyncLastError = "syncLastError"
)

// deviceLocalKeys is the one place the synced/device-local split is declared.
var deviceLocalKeys = map[string]bool{
	KeySyncEndpoint:  true,
	KeySyncKey:       true,
	KeySyncAuto:      true,
	KeySyncLastAt:    true,
	KeySyncLastError: true,
}

// Settings is the full settings map as stored locally.
type Settings map[string]any

// Defaults returns the default settings for a fresh profile.
func Defaults() Settings {
	return Settings{
		KeyShowExample:      true,
		KeyShowNotes:        true,
		KeyTheme:            "school",
		KeyMeaningWrongNext: "today",
		KeySpellingWrongNext: "today",
		KeySpellingPrompt:   "meaning",
		KeyReviewAmbiguous:  true,
		KeySyncEndpoint:     "",
		KeySyncKey:          "",
		KeySyncAuto:         true,
		KeySyncLastAt:       nil,
		KeySyncLastError:    nil,
	}
}

// WithDefaults overlays stored values on the defaults, so new keys pick up
// their default on old profiles.
func WithDefaults(raw Settings) Settings {
	out := Defaults()
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// IsDeviceLocal reports whether a key belongs to the device-local partition.
func IsDeviceLocal(key string) bool {
	return deviceLocalKeys[key]
}

// SyncedOnly returns a copy with the device-local partition removed. This is
// the only filter applied before export, on both the push and merge paths.
func (s Settings) SyncedOnly() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		if deviceLocalKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// MergeRemote applies pulled settings over local ones. Remote values win for
// every synced key; device-local keys always keep their local values.
func MergeRemote(local, remote Settings) Settings {
	out := make(Settings, len(local)+len(remote))
	for k, v := range local {
		out[k] = v
	}
	for k, v := range remote {
		if deviceLocalKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// Bool reads a boolean setting, falling back when absent or mistyped.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// String reads a string setting, falling back when absent or mistyped.
func (s Settings) String(key string, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}
