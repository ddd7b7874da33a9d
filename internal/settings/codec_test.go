package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTripIsByteIdentical(t *testing.T) {
	custom := DefaultSettings()
	custom.KeyBindings[MineSentence] = "Enter"
	custom.KeyBindings[ToggleAutoPause] = ""
	custom.AutoPause = AutoPauseConfig{Enabled: true, PauseAt: PauseAtEnd}

	for name, s := range map[string]PlayerSettings{
		"defaults": DefaultSettings(),
		"custom":   custom,
	} {
		t.Run(name, func(t *testing.T) {
			first, err := Marshal(s)
			require.NoError(t, err)

			decoded, normalized, err := Unmarshal(first)
			require.NoError(t, err)
			assert.False(t, normalized)
			assert.Equal(t, s, decoded)

			second, err := Marshal(decoded)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestMarshalEnvelope(t *testing.T) {
	data, err := Marshal(DefaultSettings())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"state": {
			"keyBindings": {
				"mineSentence": "m",
				"adjustSubtitleOffsetForward": "]",
				"adjustSubtitleOffsetBackward": "[",
				"resetSubtitleOffset": "\\",
				"seekNextSubtitle": "ArrowRight",
				"seekPreviousSubtitle": "ArrowLeft",
				"toggleAutoPause": "p"
			},
			"autoPause": {"enabled": false, "pauseAt": "start"}
		},
		"version": 0
	}`, string(data))
}

func TestUnmarshalMissingAutoPause(t *testing.T) {
	s, normalized, err := Unmarshal([]byte(`{"state":{"keyBindings":{}},"version":0}`))
	require.NoError(t, err)
	assert.True(t, normalized)
	assert.Equal(t, DefaultSettings(), s)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	s, _, err := Unmarshal([]byte(`[]`))
	assert.Error(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("seekNextSubtitle")
	require.NoError(t, err)
	assert.Equal(t, SeekNextSubtitle, a)

	_, err = ParseAction("SeekNextSubtitle")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestActionsCoverDefaults(t *testing.T) {
	defaults := DefaultKeyBindings()
	assert.Len(t, defaults, len(Actions()))
	for _, a := range Actions() {
		assert.NotEmpty(t, defaults[a], a)
		assert.NotEmpty(t, a.Description(), a)
	}
}

func TestUnmarshalDuplicateKeysLaterActionWins(t *testing.T) {
	data := []byte(`{"state":{"keyBindings":{
		"mineSentence": "x",
		"adjustSubtitleOffsetForward": "]",
		"adjustSubtitleOffsetBackward": "[",
		"resetSubtitleOffset": "\\",
		"seekNextSubtitle": "ArrowRight",
		"seekPreviousSubtitle": "ArrowLeft",
		"toggleAutoPause": "x"
	},"autoPause":{"enabled":false,"pauseAt":"start"}},"version":0}`)

	for i := 0; i < 100; i++ {
		s, normalized, err := Unmarshal(data)
		require.NoError(t, err)
		assert.True(t, normalized)
		assert.Equal(t, "x", s.KeyBindings[ToggleAutoPause])
		assert.Equal(t, "", s.KeyBindings[MineSentence])
	}
}

func TestUnmarshalStoredKeyBeatsFilledDefault(t *testing.T) {
	s, normalized, err := Unmarshal([]byte(`{"state":{"keyBindings":{"mineSentence":"p"},"autoPause":{"enabled":false,"pauseAt":"start"}},"version":0}`))
	require.NoError(t, err)
	assert.True(t, normalized)
	assert.Equal(t, "p", s.KeyBindings[MineSentence])
	assert.Equal(t, "", s.KeyBindings[ToggleAutoPause])
}
