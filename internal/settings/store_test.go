package settings

import (
	"testing"

	"github.com/metcalfc/yomu/internal/logging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "/state/player-settings.json"

func newTestStore(t *testing.T, fs afero.Afero, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithFs(fs), WithPath(testPath), WithLogger(logging.Discard())}
	return NewStore(append(base, opts...)...)
}

func memFs() afero.Afero {
	return afero.Afero{Fs: afero.NewMemMapFs()}
}

func ptr[T any](v T) *T { return &v }

func TestDefaultsBeforeLoad(t *testing.T) {
	s := newTestStore(t, memFs())

	got := s.Settings()
	assert.Equal(t, DefaultSettings(), got)
	assert.Equal(t, "m", got.KeyBindings[MineSentence])
	assert.Equal(t, PauseAtStart, got.AutoPause.PauseAt)
	assert.False(t, got.AutoPause.Enabled)
}

func TestSetKeyBinding(t *testing.T) {
	for _, action := range Actions() {
		t.Run(string(action), func(t *testing.T) {
			s := newTestStore(t, memFs())

			require.NoError(t, s.SetKeyBinding(action, "F9"))

			got := s.Settings()
			want := DefaultKeyBindings()
			want[action] = "F9"
			assert.Equal(t, want, got.KeyBindings)
			assert.Equal(t, DefaultAutoPause(), got.AutoPause)
		})
	}
}

func TestSetKeyBindingRejectsBadInput(t *testing.T) {
	s := newTestStore(t, memFs())

	err := s.SetKeyBinding(Action("jump"), "j")
	assert.ErrorIs(t, err, ErrUnknownAction)

	err = s.SetKeyBinding(MineSentence, "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	assert.Equal(t, DefaultSettings(), s.Settings())
}

func TestSetKeyBindingMovesSharedKey(t *testing.T) {
	s := newTestStore(t, memFs())

	require.NoError(t, s.SetKeyBinding(SeekNextSubtitle, "m"))

	got := s.Settings().KeyBindings
	assert.Equal(t, "m", got[SeekNextSubtitle])
	assert.Equal(t, "", got[MineSentence])

	action, ok := s.ActionFor("m")
	require.True(t, ok)
	assert.Equal(t, SeekNextSubtitle, action)
}

func TestActionForIsCaseSensitive(t *testing.T) {
	s := newTestStore(t, memFs())

	action, ok := s.ActionFor("p")
	require.True(t, ok)
	assert.Equal(t, ToggleAutoPause, action)

	_, ok = s.ActionFor("P")
	assert.False(t, ok)

	_, ok = s.ActionFor("")
	assert.False(t, ok)
}

func TestResetKeyBindingsKeepsAutoPause(t *testing.T) {
	s := newTestStore(t, memFs())

	require.NoError(t, s.SetKeyBinding(MineSentence, "x"))
	require.NoError(t, s.SetKeyBinding(ToggleAutoPause, "m"))
	require.NoError(t, s.SetAutoPause(AutoPausePatch{Enabled: ptr(true), PauseAt: ptr(PauseAtEnd)}))

	s.ResetKeyBindings()

	got := s.Settings()
	assert.Equal(t, DefaultKeyBindings(), got.KeyBindings)
	assert.Equal(t, AutoPauseConfig{Enabled: true, PauseAt: PauseAtEnd}, got.AutoPause)
}

func TestSetAutoPauseMerges(t *testing.T) {
	s := newTestStore(t, memFs())

	require.NoError(t, s.SetAutoPause(AutoPausePatch{Enabled: ptr(true)}))
	require.NoError(t, s.SetAutoPause(AutoPausePatch{PauseAt: ptr(PauseAtEnd)}))

	assert.Equal(t, AutoPauseConfig{Enabled: true, PauseAt: PauseAtEnd}, s.Settings().AutoPause)

	err := s.SetAutoPause(AutoPausePatch{PauseAt: ptr(PauseAt("middle"))})
	assert.ErrorIs(t, err, ErrInvalidPauseAt)
	assert.Equal(t, AutoPauseConfig{Enabled: true, PauseAt: PauseAtEnd}, s.Settings().AutoPause)
}

func TestToggleAutoPause(t *testing.T) {
	s := newTestStore(t, memFs())

	assert.True(t, s.ToggleAutoPause())
	assert.True(t, s.Settings().AutoPause.Enabled)
	assert.False(t, s.ToggleAutoPause())
	assert.False(t, s.Settings().AutoPause.Enabled)
}

func TestResetRestoresAggregate(t *testing.T) {
	s := newTestStore(t, memFs())
	require.NoError(t, s.SetKeyBinding(MineSentence, "x"))
	s.ToggleAutoPause()

	s.Reset()

	assert.Equal(t, DefaultSettings(), s.Settings())
}

func TestMutationsPersistImmediately(t *testing.T) {
	fs := memFs()
	s := newTestStore(t, fs)

	require.NoError(t, s.SetKeyBinding(MineSentence, "Enter"))
	require.NoError(t, s.SetAutoPause(AutoPausePatch{Enabled: ptr(true)}))

	reloaded := newTestStore(t, fs)
	assert.Equal(t, s.Settings(), reloaded.Settings())
	assert.Equal(t, "Enter", reloaded.Settings().KeyBindings[MineSentence])
	assert.True(t, reloaded.Settings().AutoPause.Enabled)
}

func TestPersistFailureDoesNotFailMutation(t *testing.T) {
	fs := afero.Afero{Fs: afero.NewReadOnlyFs(afero.NewMemMapFs())}
	var reported []error
	s := newTestStore(t, fs, WithPersistErrorHandler(func(err error) {
		reported = append(reported, err)
	}))

	require.NoError(t, s.SetKeyBinding(MineSentence, "x"))
	assert.True(t, s.ToggleAutoPause())

	assert.Equal(t, "x", s.Settings().KeyBindings[MineSentence])
	assert.True(t, s.Settings().AutoPause.Enabled)
	assert.Len(t, reported, 2)
}

func TestFlushUnchangedIsByteIdentical(t *testing.T) {
	fs := memFs()
	// Hand-written record with formatting Marshal would not produce.
	original := []byte(`{"state":{"keyBindings":{"adjustSubtitleOffsetBackward":"[","adjustSubtitleOffsetForward":"]","mineSentence":"m","resetSubtitleOffset":"\\","seekNextSubtitle":"ArrowRight","seekPreviousSubtitle":"ArrowLeft","toggleAutoPause":"p"},"autoPause":{"enabled":true,"pauseAt":"end"}},"version":0}`)
	require.NoError(t, fs.MkdirAll("/state", 0755))
	require.NoError(t, fs.WriteFile(testPath, original, 0644))

	s := newTestStore(t, fs)
	assert.Equal(t, AutoPauseConfig{Enabled: true, PauseAt: PauseAtEnd}, s.Settings().AutoPause)

	s.Flush()

	data, err := fs.ReadFile(testPath)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestLoadNormalizesRecord(t *testing.T) {
	fs := memFs()
	record := []byte(`{"state":{"keyBindings":{"mineSentence":"q","teleport":"t"},"autoPause":{"enabled":true,"pauseAt":"sideways"}},"version":0}`)
	require.NoError(t, fs.MkdirAll("/state", 0755))
	require.NoError(t, fs.WriteFile(testPath, record, 0644))

	s := newTestStore(t, fs)

	got := s.Settings()
	want := DefaultKeyBindings()
	want[MineSentence] = "q"
	assert.Equal(t, want, got.KeyBindings)
	assert.Equal(t, AutoPauseConfig{Enabled: true, PauseAt: PauseAtStart}, got.AutoPause)

	s.Flush()
	data, err := fs.ReadFile(testPath)
	require.NoError(t, err)
	canonical, err := Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, canonical, data)
}

func TestLoadResolvesDuplicateKeysDeterministically(t *testing.T) {
	fs := memFs()
	record := []byte(`{"state":{"keyBindings":{"mineSentence":"x","toggleAutoPause":"x"},"autoPause":{"enabled":false,"pauseAt":"start"}},"version":0}`)
	require.NoError(t, fs.MkdirAll("/state", 0755))
	require.NoError(t, fs.WriteFile(testPath, record, 0644))

	for i := 0; i < 50; i++ {
		s := newTestStore(t, fs)
		a, ok := s.ActionFor("x")
		require.True(t, ok)
		assert.Equal(t, ToggleAutoPause, a)
		assert.Equal(t, "", s.Settings().KeyBindings[MineSentence])
	}

	newTestStore(t, fs).Flush()
	data, err := fs.ReadFile(testPath)
	require.NoError(t, err)
	_, normalized, err := Unmarshal(data)
	require.NoError(t, err)
	assert.False(t, normalized)
}

func TestLoadCorruptRecordFallsBackToDefaults(t *testing.T) {
	fs := memFs()
	require.NoError(t, fs.MkdirAll("/state", 0755))
	require.NoError(t, fs.WriteFile(testPath, []byte("{not json"), 0644))

	s := newTestStore(t, fs)
	assert.Equal(t, DefaultSettings(), s.Settings())
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t, memFs())

	var seen []PlayerSettings
	cancel := s.Subscribe(func(ps PlayerSettings) {
		seen = append(seen, ps)
	})

	s.ToggleAutoPause()
	require.NoError(t, s.SetKeyBinding(MineSentence, "x"))
	require.Len(t, seen, 2)
	assert.True(t, seen[0].AutoPause.Enabled)
	assert.Equal(t, "x", seen[1].KeyBindings[MineSentence])

	// Snapshots are independent of the store.
	seen[1].KeyBindings[MineSentence] = "z"
	assert.Equal(t, "x", s.Settings().KeyBindings[MineSentence])

	cancel()
	s.ToggleAutoPause()
	assert.Len(t, seen, 2)
}

func TestSettingsSnapshotIsolation(t *testing.T) {
	s := newTestStore(t, memFs())

	snap := s.Settings()
	snap.KeyBindings[MineSentence] = "zzz"

	assert.Equal(t, "m", s.Settings().KeyBindings[MineSentence])
}
