// Package settings owns the persisted player settings: key bindings and auto-pause configuration.
package settings

import (
	"errors"
	"fmt"
)

// Action is a logical action a physical key can be bound to.
type Action string

// The fixed set of bindable actions.
const (
	MineSentence                 Action = "mineSentence"
	AdjustSubtitleOffsetForward  Action = "adjustSubtitleOffsetForward"
	AdjustSubtitleOffsetBackward Action = "adjustSubtitleOffsetBackward"
	ResetSubtitleOffset          Action = "resetSubtitleOffset"
	SeekNextSubtitle             Action = "seekNextSubtitle"
	SeekPreviousSubtitle         Action = "seekPreviousSubtitle"
	ToggleAutoPause              Action = "toggleAutoPause"
)

var actions = []Action{
	MineSentence,
	AdjustSubtitleOffsetForward,
	AdjustSubtitleOffsetBackward,
	ResetSubtitleOffset,
	SeekNextSubtitle,
	SeekPreviousSubtitle,
	ToggleAutoPause,
}

// Actions returns every bindable action in display order.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

// Description is a short human label for the action.
func (a Action) Description() string {
	switch a {
	case MineSentence:
		return "mine sentence"
	case AdjustSubtitleOffsetForward:
		return "offset +"
	case AdjustSubtitleOffsetBackward:
		return "offset -"
	case ResetSubtitleOffset:
		return "reset offset"
	case SeekNextSubtitle:
		return "next cue"
	case SeekPreviousSubtitle:
		return "previous cue"
	case ToggleAutoPause:
		return "auto-pause"
	}
	return string(a)
}

// ParseAction converts a name to an Action.
func ParseAction(name string) (Action, error) {
	a := Action(name)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// KeyBindings maps each action to the physical key identifier that triggers it.
// An empty identifier means the action is unbound.
type KeyBindings map[Action]string

// Clone returns an independent copy.
func (k KeyBindings) Clone() KeyBindings {
	out := make(KeyBindings, len(k))
	for a, key := range k {
		out[a] = key
	}
	return out
}

// PauseAt selects which cue boundary auto-pause stops at.
type PauseAt string

const (
	PauseAtStart PauseAt = "start"
	PauseAtEnd   PauseAt = "end"
)

// Valid reports whether p is a known boundary.
func (p PauseAt) Valid() bool {
	return p == PauseAtStart || p == PauseAtEnd
}

// AutoPauseConfig is the persisted auto-pause configuration.
type AutoPauseConfig struct {
	Enabled bool    `json:"enabled"`
	PauseAt PauseAt `json:"pauseAt"`
}

// AutoPausePatch is a partial AutoPauseConfig; nil fields are left unchanged.
type AutoPausePatch struct {
	Enabled *bool
	PauseAt *PauseAt
}

// PlayerSettings is the aggregate persisted per device.
type PlayerSettings struct {
	KeyBindings KeyBindings     `json:"keyBindings"`
	AutoPause   AutoPauseConfig `json:"autoPause"`
}

// Clone returns an independent copy.
func (s PlayerSettings) Clone() PlayerSettings {
	return PlayerSettings{
		KeyBindings: s.KeyBindings.Clone(),
		AutoPause:   s.AutoPause,
	}
}

// DefaultKeyBindings returns the factory bindings.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		MineSentence:                 "m",
		AdjustSubtitleOffsetForward:  "]",
		AdjustSubtitleOffsetBackward: "[",
		ResetSubtitleOffset:          "\\",
		SeekNextSubtitle:             "ArrowRight",
		SeekPreviousSubtitle:         "ArrowLeft",
		ToggleAutoPause:              "p",
	}
}

// DefaultAutoPause returns the factory auto-pause configuration.
func DefaultAutoPause() AutoPauseConfig {
	return AutoPauseConfig{Enabled: false, PauseAt: PauseAtStart}
}

// DefaultSettings returns the factory aggregate.
func DefaultSettings() PlayerSettings {
	return PlayerSettings{
		KeyBindings: DefaultKeyBindings(),
		AutoPause:   DefaultAutoPause(),
	}
}

// Configuration errors. Mutations returning them leave the settings unchanged.
var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrEmptyKey       = errors.New("empty key identifier")
	ErrInvalidPauseAt = errors.New("invalid pauseAt")
)
