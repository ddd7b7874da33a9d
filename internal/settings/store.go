package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/where"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileName is the persisted settings record inside the state directory.
const FileName = "player-settings.json"

// Listener is called with a snapshot after every mutation, whether or not it reached disk.
type Listener func(PlayerSettings)

// Store is the single writer of PlayerSettings. Every mutation updates memory and
// then writes the whole aggregate before returning. Write failures are reported to
// the logger and the persist error handler; they never fail the mutation.
type Store struct {
	mu       sync.Mutex
	fs       afero.Afero
	path     string
	log      logrus.FieldLogger
	settings PlayerSettings

	// raw is the last content known to be on disk; dirty means memory is ahead of it.
	raw   []byte
	dirty bool

	onPersistError func(error)
	listeners      map[int]Listener
	nextListener   int
}

// Option configures a Store.
type Option func(*Store)

// WithPath overrides the record location.
func WithPath(path string) Option {
	return func(s *Store) { s.path = path }
}

// WithLogger sets the logger persistence failures are reported to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// WithFs overrides the file system.
func WithFs(fs afero.Afero) Option {
	return func(s *Store) { s.fs = fs }
}

// WithPersistErrorHandler registers a callback for failed writes.
func WithPersistErrorHandler(fn func(error)) Option {
	return func(s *Store) { s.onPersistError = fn }
}

// NewStore loads the persisted record, falling back to defaults when it is missing or unreadable.
func NewStore(opts ...Option) *Store {
	s := &Store{
		fs:        filesystem.API(),
		settings:  DefaultSettings(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.path == "" {
		s.path = filepath.Join(where.State(), FileName)
	}

	s.load()
	return s
}

// Path returns the location of the persisted record.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() {
	data, err := s.fs.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("read player settings, using defaults")
		return
	}

	loaded, normalized, err := Unmarshal(data)
	if err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("corrupt player settings, using defaults")
		s.dirty = true
		return
	}

	s.settings = loaded
	s.raw = data
	s.dirty = normalized
}

// Settings returns a snapshot of the current aggregate.
func (s *Store) Settings() PlayerSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

// ActionFor returns the action bound to a physical key. Keys are matched exactly.
func (s *Store) ActionFor(key string) (Action, bool) {
	if key == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.FindKey(s.settings.KeyBindings, key)
}

// SetKeyBinding binds key to action. A key already held by another action is moved:
// the previous holder becomes unbound.
func (s *Store) SetKeyBinding(action Action, key string) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if key == "" {
		return fmt.Errorf("%w for %s", ErrEmptyKey, action)
	}

	s.mu.Lock()
	for other, bound := range s.settings.KeyBindings {
		if other != action && bound == key {
			s.log.WithFields(logrus.Fields{
				"key":      key,
				"action":   action,
				"previous": other,
			}).Warn("key binding reassigned")
			s.settings.KeyBindings[other] = ""
		}
	}
	s.settings.KeyBindings[action] = key
	snapshot, err := s.commitLocked()
	s.mu.Unlock()

	s.after(snapshot, err)
	return nil
}

// ResetKeyBindings restores the default bindings. Auto-pause configuration is untouched.
func (s *Store) ResetKeyBindings() {
	s.mu.Lock()
	s.settings.KeyBindings = DefaultKeyBindings()
	snapshot, err := s.commitLocked()
	s.mu.Unlock()

	s.after(snapshot, err)
}

// SetAutoPause merges patch into the auto-pause configuration.
func (s *Store) SetAutoPause(patch AutoPausePatch) error {
	if patch.PauseAt != nil && !patch.PauseAt.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPauseAt, *patch.PauseAt)
	}

	s.mu.Lock()
	if patch.Enabled != nil {
		s.settings.AutoPause.Enabled = *patch.Enabled
	}
	if patch.PauseAt != nil {
		s.settings.AutoPause.PauseAt = *patch.PauseAt
	}
	snapshot, err := s.commitLocked()
	s.mu.Unlock()

	s.after(snapshot, err)
	return nil
}

// ToggleAutoPause flips the enabled flag and returns the new value.
func (s *Store) ToggleAutoPause() bool {
	s.mu.Lock()
	s.settings.AutoPause.Enabled = !s.settings.AutoPause.Enabled
	enabled := s.settings.AutoPause.Enabled
	snapshot, err := s.commitLocked()
	s.mu.Unlock()

	s.after(snapshot, err)
	return enabled
}

// Reset restores the whole aggregate to its defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	s.settings = DefaultSettings()
	snapshot, err := s.commitLocked()
	s.mu.Unlock()

	s.after(snapshot, err)
}

// Flush writes the current aggregate. An unchanged record is rewritten byte for byte.
func (s *Store) Flush() {
	s.mu.Lock()
	var err error
	if !s.dirty && s.raw != nil {
		err = s.write(s.raw)
	} else {
		_, err = s.commitLocked()
	}
	s.mu.Unlock()

	if err != nil {
		s.report(err)
	}
}

// Subscribe registers fn for change notifications and returns its cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// commitLocked persists the in-memory aggregate and returns a snapshot of it.
func (s *Store) commitLocked() (PlayerSettings, error) {
	snapshot := s.settings.Clone()
	data, err := Marshal(s.settings)
	if err != nil {
		s.dirty = true
		return snapshot, fmt.Errorf("encode player settings: %w", err)
	}
	if err := s.write(data); err != nil {
		s.dirty = true
		return snapshot, err
	}
	s.raw = data
	s.dirty = false
	return snapshot, nil
}

func (s *Store) write(data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := s.fs.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write player settings: %w", err)
	}
	return nil
}

func (s *Store) report(err error) {
	s.log.WithError(err).WithField("path", s.path).Error("persist player settings")
	if s.onPersistError != nil {
		s.onPersistError(err)
	}
}

// after runs once the lock is released: failures are reported, then listeners see the new value.
func (s *Store) after(snapshot PlayerSettings, err error) {
	if err != nil {
		s.report(err)
	}

	s.mu.Lock()
	ids := lo.Keys(s.listeners)
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}
