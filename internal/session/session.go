// Package session ties a document, its navigator, the RSVP surface, the
// auto-pause controller and the key dispatcher into one reading session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/metcalfc/yomu/internal/autopause"
	"github.com/metcalfc/yomu/internal/cue"
	"github.com/metcalfc/yomu/internal/dispatch"
	"github.com/metcalfc/yomu/internal/mining"
	"github.com/metcalfc/yomu/internal/navigator"
	"github.com/metcalfc/yomu/internal/reader"
	"github.com/metcalfc/yomu/internal/settings"
	"github.com/metcalfc/yomu/internal/state"
)

// Options configures Open. Settings is required.
type Options struct {
	Path string
	WPM  int
	// Fresh ignores the saved resume position.
	Fresh      bool
	OffsetStep time.Duration

	Settings  *settings.Store
	Positions *state.Store
	Mined     *mining.Sink
	Log       logrus.FieldLogger
}

// Session is one open document being read.
type Session struct {
	doc       reader.Document
	hash      string
	surface   *reader.Reader
	nav       *navigator.Navigator
	ctl       *autopause.Controller
	disp      *dispatch.Dispatcher
	positions *state.Store
	mined     *mining.Sink
	log       logrus.FieldLogger
	listener  navigator.ListenerID

	mu     sync.Mutex
	track  *cue.Track
	status string
	done   bool
}

// Open opens the document at opts.Path and displays the resume location, or
// the first spine item.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Settings == nil {
		return nil, errors.New("session: settings store is required")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("path", opts.Path)

	doc, err := reader.Open(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}

	s := &Session{
		doc:       doc,
		surface:   reader.NewReader("", opts.WPM),
		positions: opts.Positions,
		mined:     opts.Mined,
		log:       log,
	}

	saved := mo.None[state.Position]()
	if s.positions != nil {
		if s.hash, err = state.ComputeHash(opts.Path); err != nil {
			log.WithError(err).Warn("hash document, resume disabled")
		} else if p, ok := s.positions.Get(s.hash); ok && !opts.Fresh {
			saved = mo.Some(p)
		}
	}

	var navOpts []navigator.Option
	navOpts = append(navOpts, navigator.WithLogger(log))
	if p, ok := saved.Get(); ok {
		navOpts = append(navOpts, navigator.WithResume(p.Location))
	}
	s.nav = navigator.New(engine{doc: doc, surface: s.surface}, navOpts...)

	s.ctl = autopause.New(opts.Settings, s.surface, autopause.WithLogger(log))

	dispOpts := []dispatch.Option{dispatch.WithLogger(log)}
	if opts.OffsetStep > 0 {
		dispOpts = append(dispOpts, dispatch.WithOffsetStep(opts.OffsetStep))
	}
	s.disp = dispatch.New(opts.Settings, s.nav, s, dispOpts...)

	s.listener = s.nav.OnLocationChanged(s.locationChanged)

	if err := s.nav.Display(ctx, ""); err != nil {
		s.Close()
		return nil, err
	}

	if p, ok := saved.Get(); ok && s.atSaved(p) {
		s.surface.SeekWord(p.Word)
		s.ctl.Seek(s.cuePosition())
	}
	return s, nil
}

// atSaved reports whether the displayed location is the one p was saved at.
// Identifiers are compared by position, so an href or #n still matches the CFI
// the navigator displays.
func (s *Session) atSaved(p state.Position) bool {
	loc, ok := s.nav.CurrentLocation().Get()
	if !ok {
		return false
	}
	want, err := s.nav.Locate(p.Location)
	if err != nil {
		return false
	}
	return s.nav.Compare(loc, want) == 0
}

// locationChanged reloads the cue track for the newly rendered spine item.
func (s *Session) locationChanged(loc navigator.Location) {
	track := s.surface.Cues()
	s.mu.Lock()
	s.track = track
	s.done = false
	s.mu.Unlock()

	s.ctl.SetTrack(track)
	s.ctl.Seek(s.cuePosition())
	s.savePosition()
	s.log.WithFields(logrus.Fields{"cfi": loc.CFI, "page": loc.Page, "cues": track.Len()}).Debug("location changed")
}

// cuePosition is the surface position on the cue timeline.
func (s *Session) cuePosition() time.Duration {
	return s.surface.Position() - s.disp.Offset()
}

func (s *Session) currentTrack() *cue.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Tick advances playback by one word. At the end of a spine item it moves to
// the next one; at the end of the document playback stops. It reports whether
// playback is still running.
func (s *Session) Tick(ctx context.Context) bool {
	if s.surface.Paused() {
		return false
	}
	if !s.surface.Advance() {
		loc, ok := s.nav.CurrentLocation().Get()
		if !ok || loc.Page >= loc.Total {
			s.surface.Pause()
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
			s.savePosition()
			return false
		}
		if err := s.nav.StepNext(ctx); err != nil {
			s.surface.Pause()
			s.setStatus(err.Error())
			return false
		}
		return !s.surface.Paused()
	}
	s.ctl.OnPosition(s.cuePosition())
	return !s.surface.Paused()
}

// TogglePlay starts or holds playback. Starting releases an auto-pause.
func (s *Session) TogglePlay() {
	if s.surface.Paused() {
		s.ctl.Resume()
		s.surface.Play()
		return
	}
	s.surface.Pause()
	s.savePosition()
}

// HandleKey dispatches a physical key identifier. It reports whether the key
// was bound to an action.
func (s *Session) HandleKey(k string) bool {
	return s.disp.HandleKeyEvent(k)
}

// Mine captures the sentence under the current word.
func (s *Session) Mine(req dispatch.MineRequest) {
	text := s.surface.CurrentWord()
	if c, ok := s.currentTrack().At(s.cuePosition()); ok {
		text = c.Text
	}
	entry := mining.Entry{
		ID:         req.ID,
		Document:   s.doc.Title(),
		Text:       text,
		CapturedAt: req.RequestedAt,
	}
	if loc, ok := req.Location.Get(); ok {
		entry.Location = loc.CFI
		entry.Href = loc.Href
	}

	if s.mined == nil {
		s.setStatus("mining is not configured")
		return
	}
	if err := s.mined.Append(entry); err != nil {
		s.log.WithError(err).Error("append mined sentence")
		s.setStatus("could not save sentence")
		return
	}
	s.setStatus("mined: " + text)
}

// SeekCue moves to the start of the next or previous cue.
func (s *Session) SeekCue(direction int) {
	track := s.currentTrack()
	pos := s.cuePosition()

	var target cue.Cue
	var ok bool
	if direction == dispatch.Forward {
		target, ok = track.Next(pos)
	} else {
		target, ok = track.Previous(pos)
	}
	if !ok {
		return
	}
	s.surface.SeekTo(target.Start + s.disp.Offset())
	s.ctl.Seek(s.cuePosition())
}

// OffsetChanged re-anchors auto-pause on the shifted timeline.
func (s *Session) OffsetChanged(offset time.Duration) {
	s.ctl.Seek(s.cuePosition())
	s.setStatus(fmt.Sprintf("offset %+dms", offset.Milliseconds()))
}

// Faster raises the reading speed.
func (s *Session) Faster() { s.retime(s.surface.Faster) }

// Slower lowers the reading speed.
func (s *Session) Slower() { s.retime(s.surface.Slower) }

// retime keeps the current word while the cue timeline is rebuilt for a new speed.
func (s *Session) retime(change func()) {
	word := s.surface.Index()
	change()
	s.surface.SeekWord(word)

	track := s.surface.Cues()
	s.mu.Lock()
	s.track = track
	s.mu.Unlock()
	s.ctl.SetTrack(track)
	s.ctl.Seek(s.cuePosition())
}

// NextSection moves to the next spine item.
func (s *Session) NextSection(ctx context.Context) error { return s.nav.StepNext(ctx) }

// PrevSection moves to the previous spine item.
func (s *Session) PrevSection(ctx context.Context) error { return s.nav.StepPrevious(ctx) }

// GoTo displays a location identifier: a CFI, an href or #n.
func (s *Session) GoTo(ctx context.Context, id string) error { return s.nav.Display(ctx, id) }

// TableOfContents returns the document's table of contents.
func (s *Session) TableOfContents(ctx context.Context) ([]navigator.Node, error) {
	return s.nav.TableOfContents(ctx)
}

// Snapshot is what a front end renders.
type Snapshot struct {
	Title     string
	Word      string
	Index     int
	Words     int
	WPM       int
	Paused    bool
	Done      bool
	Location  mo.Option[navigator.Location]
	Cue       mo.Option[cue.Cue]
	AutoPause autopause.State
	LastPause mo.Option[autopause.PauseReason]
	Offset    time.Duration
	Status    string
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() Snapshot {
	index, total := s.surface.Progress()
	c, ok := s.currentTrack().At(s.cuePosition())

	s.mu.Lock()
	status, done := s.status, s.done
	s.mu.Unlock()

	return Snapshot{
		Title:     s.doc.Title(),
		Word:      s.surface.CurrentWord(),
		Index:     index,
		Words:     total,
		WPM:       s.surface.WPM(),
		Paused:    s.surface.Paused(),
		Done:      done,
		Location:  s.nav.CurrentLocation(),
		Cue:       mo.TupleToOption(c, ok),
		AutoPause: s.ctl.State(),
		LastPause: s.ctl.LastPause(),
		Offset:    s.disp.Offset(),
		Status:    status,
	}
}

// Delay returns how long the current word is shown.
func (s *Session) Delay() time.Duration {
	return s.surface.Delay()
}

// Help lists the current key bindings.
func (s *Session) Help() []key.Binding {
	return s.disp.Help()
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// savePosition records the current spine item and word for the next session.
func (s *Session) savePosition() {
	if s.positions == nil || s.hash == "" {
		return
	}
	loc, ok := s.nav.CurrentLocation().Get()
	if !ok {
		return
	}
	err := s.positions.Set(s.hash, state.Position{Location: loc.CFI, Word: s.surface.Index()})
	if err != nil {
		s.log.WithError(err).Warn("save resume position")
	}
}

// Close saves the resume position and releases the document.
func (s *Session) Close() error {
	s.savePosition()
	s.nav.OffLocationChanged(s.listener)
	s.ctl.Close()
	return s.doc.Close()
}
