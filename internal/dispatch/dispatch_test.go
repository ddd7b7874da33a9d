package dispatch

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/yomu/internal/logging"
	"github.com/metcalfc/yomu/internal/navigator"
	"github.com/metcalfc/yomu/internal/settings"
)

type recorder struct {
	mined   []MineRequest
	seeks   []int
	offsets []time.Duration
}

func (r *recorder) Mine(req MineRequest) { r.mined = append(r.mined, req) }
func (r *recorder) SeekCue(direction int) { r.seeks = append(r.seeks, direction) }
func (r *recorder) OffsetChanged(d time.Duration) { r.offsets = append(r.offsets, d) }

type fixedLocator struct{ loc mo.Option[navigator.Location] }

func (l fixedLocator) CurrentLocation() mo.Option[navigator.Location] { return l.loc }

func newTestStore() *settings.Store {
	return settings.NewStore(
		settings.WithFs(afero.Afero{Fs: afero.NewMemMapFs()}),
		settings.WithPath("/state/player-settings.json"),
		settings.WithLogger(logging.Discard()),
	)
}

func newTestDispatcher(store *settings.Store, loc mo.Option[navigator.Location], opts ...Option) (*Dispatcher, *recorder) {
	rec := &recorder{}
	base := []Option{WithLogger(logging.Discard())}
	return New(store, fixedLocator{loc: loc}, rec, append(base, opts...)...), rec
}

func TestToggleAutoPauseScenario(t *testing.T) {
	store := newTestStore()
	d, _ := newTestDispatcher(store, mo.None[navigator.Location]())

	require.False(t, store.Settings().AutoPause.Enabled)

	assert.True(t, d.HandleKeyEvent("p"))
	assert.True(t, store.Settings().AutoPause.Enabled)

	assert.True(t, d.HandleKeyEvent("p"))
	assert.False(t, store.Settings().AutoPause.Enabled)
}

func TestOffsetResetScenario(t *testing.T) {
	d, rec := newTestDispatcher(newTestStore(), mo.None[navigator.Location]())

	d.HandleKeyEvent("]")
	d.HandleKeyEvent("]")
	assert.Equal(t, 2*DefaultOffsetStep, d.Offset())

	d.HandleKeyEvent("\\")
	assert.Zero(t, d.Offset())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 0}, rec.offsets)
}

func TestOffsetIsUnbounded(t *testing.T) {
	d, _ := newTestDispatcher(newTestStore(), mo.None[navigator.Location](), WithOffsetStep(250*time.Millisecond))

	for i := 0; i < 40; i++ {
		d.HandleKeyEvent("[")
	}
	assert.Equal(t, -10*time.Second, d.Offset())
}

func TestSeekKeys(t *testing.T) {
	d, rec := newTestDispatcher(newTestStore(), mo.None[navigator.Location]())

	d.HandleKeyEvent("ArrowRight")
	d.HandleKeyEvent("ArrowLeft")
	d.HandleKeyEvent("ArrowRight")
	assert.Equal(t, []int{Forward, Backward, Forward}, rec.seeks)
}

func TestMineCarriesLocation(t *testing.T) {
	loc := navigator.Location{CFI: "epubcfi(/6/4[ch1]!)", Href: "ch1.xhtml", Page: 2, Total: 5}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d, rec := newTestDispatcher(newTestStore(), mo.Some(loc), WithClock(func() time.Time { return now }))

	assert.True(t, d.HandleKeyEvent("m"))
	assert.True(t, d.HandleKeyEvent("m"))

	require.Len(t, rec.mined, 2)
	assert.Equal(t, loc, rec.mined[0].Location.MustGet())
	assert.Equal(t, now, rec.mined[0].RequestedAt)
	assert.NotEqual(t, uuid.Nil, rec.mined[0].ID)
	assert.NotEqual(t, rec.mined[0].ID, rec.mined[1].ID)
}

func TestUnknownKeysIgnored(t *testing.T) {
	store := newTestStore()
	d, rec := newTestDispatcher(store, mo.None[navigator.Location]())

	for _, k := range []string{"x", "M", "P", "", "arrowright"} {
		assert.False(t, d.HandleKeyEvent(k), k)
	}
	assert.Empty(t, rec.mined)
	assert.Empty(t, rec.seeks)
	assert.Empty(t, rec.offsets)
	assert.Equal(t, settings.DefaultSettings(), store.Settings())
}

func TestRebindingTakesEffect(t *testing.T) {
	store := newTestStore()
	d, rec := newTestDispatcher(store, mo.None[navigator.Location]())

	require.NoError(t, store.SetKeyBinding(settings.MineSentence, "Enter"))
	assert.False(t, d.HandleKeyEvent("m"))
	assert.True(t, d.HandleKeyEvent("Enter"))
	assert.Len(t, rec.mined, 1)

	// "p" moves to seekNextSubtitle; toggleAutoPause loses its key.
	require.NoError(t, store.SetKeyBinding(settings.SeekNextSubtitle, "p"))
	d.HandleKeyEvent("p")
	assert.Equal(t, []int{Forward}, rec.seeks)
	assert.False(t, store.Settings().AutoPause.Enabled)
}

func TestHelp(t *testing.T) {
	store := newTestStore()
	d, _ := newTestDispatcher(store, mo.None[navigator.Location]())

	help := d.Help()
	require.Len(t, help, len(settings.Actions()))
	assert.Equal(t, []string{"m"}, help[0].Keys())
	assert.Equal(t, key.Help{Key: "m", Desc: "mine sentence"}, help[0].Help())
	assert.Equal(t, "→", help[4].Help().Key)

	require.NoError(t, store.SetKeyBinding(settings.ToggleAutoPause, "m"))
	assert.Len(t, d.Help(), len(settings.Actions())-1)
}
