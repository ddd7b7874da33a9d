package settings

import (
	"encoding/json"
	"fmt"
)

// RecordVersion is written into every persisted record.
const RecordVersion = 0

type record struct {
	State   PlayerSettings `json:"state"`
	Version int            `json:"version"`
}

type looseRecord struct {
	State struct {
		KeyBindings map[string]string `json:"keyBindings"`
		AutoPause   *struct {
			Enabled *bool   `json:"enabled"`
			PauseAt *string `json:"pauseAt"`
		} `json:"autoPause"`
	} `json:"state"`
	Version int `json:"version"`
}

// Marshal encodes s as a persisted record. Map keys are sorted, so equal settings
// always encode to the same bytes.
func Marshal(s PlayerSettings) ([]byte, error) {
	return json.MarshalIndent(record{State: s, Version: RecordVersion}, "", "  ")
}

// Unmarshal decodes a persisted record, filling gaps from the defaults.
// normalized is true when the decoded record differed from what Marshal would
// have produced for the returned settings (unknown actions, missing fields, bad values).
func Unmarshal(data []byte) (s PlayerSettings, normalized bool, err error) {
	var rec looseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return DefaultSettings(), false, fmt.Errorf("decode settings: %w", err)
	}

	s = DefaultSettings()

	stored := make(map[Action]bool, len(rec.State.KeyBindings))
	for name, key := range rec.State.KeyBindings {
		a := Action(name)
		if !a.Valid() {
			normalized = true
			continue
		}
		s.KeyBindings[a] = key
		stored[a] = true
	}
	if len(rec.State.KeyBindings) < len(actions) {
		normalized = true
	}
	if dedupeKeys(s.KeyBindings, stored) {
		normalized = true
	}

	if ap := rec.State.AutoPause; ap != nil {
		if ap.Enabled != nil {
			s.AutoPause.Enabled = *ap.Enabled
		} else {
			normalized = true
		}
		if ap.PauseAt != nil && PauseAt(*ap.PauseAt).Valid() {
			s.AutoPause.PauseAt = PauseAt(*ap.PauseAt)
		} else {
			normalized = true
		}
	} else {
		normalized = true
	}

	if rec.Version != RecordVersion {
		normalized = true
	}

	return s, normalized, nil
}

// dedupeKeys leaves every key with at most one action, the same way
// SetKeyBinding moves a key. Stored bindings beat defaults filled in for
// missing actions; between two stored bindings the later action in Actions()
// order keeps the key. It reports whether anything was unbound.
func dedupeKeys(bindings KeyBindings, stored map[Action]bool) bool {
	changed := false
	holders := make(map[string]Action, len(bindings))
	for _, a := range actions {
		key := bindings[a]
		if key == "" {
			continue
		}
		prev, taken := holders[key]
		if !taken {
			holders[key] = a
			continue
		}
		changed = true
		if stored[prev] && !stored[a] {
			bindings[a] = ""
			continue
		}
		bindings[prev] = ""
		holders[key] = a
	}
	return changed
}
