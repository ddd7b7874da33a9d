// Package dispatch turns physical key events into player actions.
package dispatch

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/metcalfc/yomu/internal/navigator"
	"github.com/metcalfc/yomu/internal/settings"
)

// DefaultOffsetStep is how far one offset key press moves subtitles.
const DefaultOffsetStep = 100 * time.Millisecond

// Seek directions.
const (
	Backward = -1
	Forward  = 1
)

// MineRequest asks for the content at Location to be captured. Building the
// payload is up to the handler.
type MineRequest struct {
	ID          uuid.UUID
	Location    mo.Option[navigator.Location]
	RequestedAt time.Time
}

// Handlers receive the side effects of recognized actions.
type Handlers interface {
	Mine(req MineRequest)
	SeekCue(direction int)
	OffsetChanged(offset time.Duration)
}

// Bindings resolves keys and owns the auto-pause toggle. *settings.Store implements it.
type Bindings interface {
	Settings() settings.PlayerSettings
	ActionFor(key string) (settings.Action, bool)
	ToggleAutoPause() bool
}

// Locator reports where the reader is. *navigator.Navigator implements it.
type Locator interface {
	CurrentLocation() mo.Option[navigator.Location]
}

// Dispatcher maps key events to actions. Besides the transient subtitle offset
// it keeps no state; the offset is never persisted.
type Dispatcher struct {
	bindings Bindings
	locator  Locator
	handlers Handlers
	step     time.Duration
	log      logrus.FieldLogger
	now      func() time.Time

	mu     sync.Mutex
	offset time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithOffsetStep sets the offset change per key press.
func WithOffsetStep(step time.Duration) Option {
	return func(d *Dispatcher) { d.step = step }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithClock overrides the time source stamped on mine requests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New returns a Dispatcher with a zero offset.
func New(bindings Bindings, locator Locator, handlers Handlers, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bindings: bindings,
		locator:  locator,
		handlers: handlers,
		step:     DefaultOffsetStep,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleKeyEvent runs the action bound to k. Keys are matched exactly; an
// unbound key is ignored and reported as not consumed.
func (d *Dispatcher) HandleKeyEvent(k string) bool {
	action, ok := d.bindings.ActionFor(k)
	if !ok {
		return false
	}
	d.log.WithFields(logrus.Fields{"key": k, "action": action}).Debug("key event")

	switch action {
	case settings.MineSentence:
		d.handlers.Mine(MineRequest{
			ID:          uuid.New(),
			Location:    d.locator.CurrentLocation(),
			RequestedAt: d.now(),
		})
	case settings.AdjustSubtitleOffsetForward:
		d.handlers.OffsetChanged(d.shift(d.step))
	case settings.AdjustSubtitleOffsetBackward:
		d.handlers.OffsetChanged(d.shift(-d.step))
	case settings.ResetSubtitleOffset:
		d.mu.Lock()
		d.offset = 0
		d.mu.Unlock()
		d.handlers.OffsetChanged(0)
	case settings.SeekNextSubtitle:
		d.handlers.SeekCue(Forward)
	case settings.SeekPreviousSubtitle:
		d.handlers.SeekCue(Backward)
	case settings.ToggleAutoPause:
		enabled := d.bindings.ToggleAutoPause()
		d.log.WithField("enabled", enabled).Info("auto-pause toggled")
	default:
		return false
	}
	return true
}

func (d *Dispatcher) shift(delta time.Duration) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offset += delta
	return d.offset
}

// Offset returns the current subtitle offset.
func (d *Dispatcher) Offset() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

// Help returns one binding per bound action, in display order, for help views.
func (d *Dispatcher) Help() []key.Binding {
	bindings := d.bindings.Settings().KeyBindings
	var out []key.Binding
	for _, action := range settings.Actions() {
		k := bindings[action]
		if k == "" {
			continue
		}
		out = append(out, key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(KeyLabel(k), action.Description()),
		))
	}
	return out
}

var keyLabels = map[string]string{
	"ArrowRight": "→",
	"ArrowLeft":  "←",
	"ArrowUp":    "↑",
	"ArrowDown":  "↓",
	" ":          "space",
}

// KeyLabel returns a short display form of a physical key identifier.
func KeyLabel(k string) string {
	if l, ok := keyLabels[k]; ok {
		return l
	}
	return k
}
