// Package autopause decides when playback must stop at a cue boundary.
//
// The controller is reactive: it only changes state when it is told about a
// position, a seek, a resume or a settings change. It never polls.
package autopause

import (
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/metcalfc/yomu/internal/cue"
	"github.com/metcalfc/yomu/internal/settings"
)

// State is the controller state.
type State int

const (
	// Idle: auto-pause is disabled or no cue is active.
	Idle State = iota
	// Armed: tracking the active cue, boundary not reached yet.
	Armed
	// Paused: playback is held at a boundary until the user resumes.
	Paused
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Surface is the media surface the controller pauses.
type Surface interface {
	Pause()
}

// ConfigSource provides the auto-pause configuration and its changes.
// *settings.Store implements it.
type ConfigSource interface {
	Settings() settings.PlayerSettings
	Subscribe(fn settings.Listener) func()
}

// PauseReason records why playback was last paused.
type PauseReason struct {
	Cue      cue.Cue
	Boundary settings.PauseAt
	// At is the boundary time; Position is where the update that crossed it landed.
	At       time.Duration
	Position time.Duration
}

// Controller is the auto-pause state machine for one media surface.
type Controller struct {
	mu      sync.Mutex
	surface Surface
	log     logrus.FieldLogger
	cancel  func()

	cfg    settings.AutoPauseConfig
	track  *cue.Track
	pos    time.Duration
	hasPos bool
	state  State
	// fired holds the cues that already paused at the configured boundary.
	fired map[int]bool
	last  mo.Option[PauseReason]
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger transitions are traced to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = log }
}

// New returns an Idle controller that follows src's auto-pause configuration
// until Close is called.
func New(src ConfigSource, surface Surface, opts ...Option) *Controller {
	c := &Controller{
		surface: surface,
		log:     logrus.StandardLogger(),
		cfg:     src.Settings().AutoPause,
		fired:   make(map[int]bool),
		last:    mo.None[PauseReason](),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cancel = src.Subscribe(func(s settings.PlayerSettings) {
		c.configure(s.AutoPause)
	})
	return c
}

// Close stops following configuration changes.
func (c *Controller) Close() {
	c.cancel()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastPause returns the reason for the most recent pause, if any.
func (c *Controller) LastPause() mo.Option[PauseReason] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// SetTrack replaces the cue track, for example after the document moved to
// another section. Pause history and the known position are forgotten.
func (c *Controller) SetTrack(track *cue.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track = track
	c.hasPos = false
	c.pos = 0
	c.fired = make(map[int]bool)
	if c.state == Paused {
		c.state = Armed
	}
	c.settle()
}

// OnPosition handles a playback position update. Moving forward across the
// configured boundary of the active cue pauses the surface once per cue; when
// several boundaries are crossed at once only the one nearest pos counts.
func (c *Controller) OnPosition(pos time.Duration) {
	c.mu.Lock()
	prev, hadPos := c.pos, c.hasPos
	c.pos, c.hasPos = pos, true

	if c.state == Paused || !c.cfg.Enabled {
		c.mu.Unlock()
		return
	}

	var reason PauseReason
	pause := false
	if hadPos && pos > prev {
		reason, pause = c.crossed(prev, pos)
	}
	if pause {
		c.fired[reason.Cue.Index] = true
		c.state = Paused
		c.last = mo.Some(reason)
	} else {
		c.settle()
	}
	c.mu.Unlock()

	if pause {
		c.log.WithFields(logrus.Fields{
			"cue":      reason.Cue.Index,
			"boundary": reason.Boundary,
			"at":       reason.At,
		}).Debug("auto-pause")
		c.surface.Pause()
	}
}

// crossed returns the cue whose boundary in (prev, pos] is nearest pos, unless
// that cue has already paused. Earlier crossings are marked as consumed.
func (c *Controller) crossed(prev, pos time.Duration) (PauseReason, bool) {
	var hit mo.Option[PauseReason]
	for _, q := range c.track.Cues() {
		b := c.boundary(q)
		if b <= prev {
			continue
		}
		if b > pos {
			break
		}
		if r, ok := hit.Get(); ok {
			c.fired[r.Cue.Index] = true
		}
		hit = mo.Some(PauseReason{Cue: q, Boundary: c.cfg.PauseAt, At: b, Position: pos})
	}
	r, ok := hit.Get()
	if !ok || c.fired[r.Cue.Index] {
		return PauseReason{}, false
	}
	return r, true
}

func (c *Controller) boundary(q cue.Cue) time.Duration {
	if c.cfg.PauseAt == settings.PauseAtEnd {
		return q.End
	}
	return q.Start
}

// Seek handles an explicit user seek. It resumes a paused controller and never
// pauses on landing. Cues whose boundary lies after pos may pause again.
func (c *Controller) Seek(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for idx := range c.fired {
		q, ok := c.track.Get(idx)
		if !ok || c.boundary(q) > pos {
			delete(c.fired, idx)
		}
	}
	c.pos, c.hasPos = pos, true
	if c.state == Paused {
		c.state = Armed
	}
	c.settle()
}

// Resume releases a pause without moving.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Paused {
		c.state = Armed
	}
	c.settle()
}

func (c *Controller) configure(cfg settings.AutoPauseConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg == c.cfg {
		return
	}
	if cfg.PauseAt != c.cfg.PauseAt || (cfg.Enabled && !c.cfg.Enabled) {
		c.fired = make(map[int]bool)
	}
	c.cfg = cfg
	if !cfg.Enabled && c.state == Paused {
		c.state = Idle
	}
	c.settle()
	c.log.WithFields(logrus.Fields{"enabled": cfg.Enabled, "pause_at": cfg.PauseAt, "state": c.state}).Debug("auto-pause configured")
}

// settle derives Idle or Armed from the configuration and the active cue.
// A pause is left alone unless auto-pause is off.
func (c *Controller) settle() {
	if !c.cfg.Enabled {
		c.state = Idle
		return
	}
	if c.state == Paused {
		return
	}
	if _, ok := c.track.Tracked(c.pos); ok {
		c.state = Armed
	} else {
		c.state = Idle
	}
}
