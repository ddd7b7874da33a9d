package navigator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// Listener receives the new location after every completed navigation.
type Listener func(Location)

// ListenerID identifies a subscription.
type ListenerID int

type subscription struct {
	id ListenerID
	fn Listener
}

// Navigator serializes navigation requests against one Engine. A request issued
// while another is running waits for it; if a newer request arrives in the
// meantime the older one returns nil without rendering.
//
// Listeners run synchronously, in subscription order, before the navigating
// call returns. They must not navigate from inside the callback.
type Navigator struct {
	engine Engine
	spine  []SpineItem
	resume string
	log    logrus.FieldLogger

	navMu  sync.Mutex
	ticket atomic.Uint64

	mu        sync.RWMutex
	current   mo.Option[Location]
	listeners []subscription
	nextID    ListenerID

	tocMu     sync.Mutex
	toc       []Node
	tocLoaded bool
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithResume sets the location Display("") opens before anything has been shown.
func WithResume(id string) Option {
	return func(n *Navigator) { n.resume = id }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(n *Navigator) { n.log = log }
}

// New returns a Navigator over engine. The spine is read once.
func New(engine Engine, opts ...Option) *Navigator {
	spine := engine.Spine()
	normalized := make([]SpineItem, len(spine))
	for i, item := range spine {
		item.Index = i
		normalized[i] = item
	}

	n := &Navigator{
		engine:  engine,
		spine:   normalized,
		current: mo.None[Location](),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Spine returns the document's spine items.
func (n *Navigator) Spine() []SpineItem {
	out := make([]SpineItem, len(n.spine))
	copy(out, n.spine)
	return out
}

// Display navigates to hint, or with an empty hint re-displays the current
// location (the resume location, or the first spine item, before the first render).
func (n *Navigator) Display(ctx context.Context, hint string) error {
	return n.navigate(ctx, hint, func(cur mo.Option[Location]) (Position, bool, error) {
		if hint != "" {
			pos, err := ResolvePosition(n.spine, hint)
			return pos, true, err
		}
		if loc, ok := cur.Get(); ok {
			return loc.pos, true, nil
		}
		if len(n.spine) == 0 {
			return Position{}, false, ErrUnresolvable
		}
		if n.resume != "" {
			pos, err := ResolvePosition(n.spine, n.resume)
			if err == nil {
				return pos, true, nil
			}
			n.log.WithField("resume", n.resume).Warn("saved location no longer resolves, starting from the beginning")
		}
		return Position{Spine: 0}, true, nil
	})
}

// StepNext moves to the next spine item. At the last item it does nothing.
func (n *Navigator) StepNext(ctx context.Context) error {
	return n.step(ctx, 1)
}

// StepPrevious moves to the previous spine item. At the first item it does nothing.
func (n *Navigator) StepPrevious(ctx context.Context) error {
	return n.step(ctx, -1)
}

func (n *Navigator) step(ctx context.Context, delta int) error {
	target := "next"
	if delta < 0 {
		target = "previous"
	}
	return n.navigate(ctx, target, func(cur mo.Option[Location]) (Position, bool, error) {
		if len(n.spine) == 0 {
			return Position{}, false, ErrUnresolvable
		}
		loc, ok := cur.Get()
		if !ok {
			return Position{Spine: 0}, true, nil
		}
		next := loc.pos.Spine + delta
		if next < 0 || next >= len(n.spine) {
			return Position{}, false, nil
		}
		return Position{Spine: next}, true, nil
	})
}

type picker func(cur mo.Option[Location]) (pos Position, move bool, err error)

func (n *Navigator) navigate(ctx context.Context, target string, pick picker) error {
	t := n.ticket.Add(1)

	n.navMu.Lock()
	defer n.navMu.Unlock()

	if n.ticket.Load() != t {
		n.log.WithField("target", target).Debug("navigation superseded")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &NavigationError{Target: target, Err: err}
	}

	pos, move, err := pick(n.CurrentLocation())
	if err != nil {
		return &NavigationError{Target: target, Err: err}
	}
	if !move {
		return nil
	}

	if err := n.engine.Render(ctx, pos); err != nil {
		n.log.WithError(err).WithField("target", target).Error("render failed")
		return &NavigationError{Target: target, Err: err}
	}

	loc := n.locate(pos)

	n.mu.Lock()
	n.current = mo.Some(loc)
	listeners := make([]subscription, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(loc)
	}
	return nil
}

func (n *Navigator) locate(pos Position) Location {
	item := n.spine[pos.Spine]
	href := item.Href
	if pos.Fragment != "" {
		href += "#" + pos.Fragment
	}
	return Location{
		CFI:   Canonical(n.spine, pos),
		Href:  href,
		Page:  pos.Spine + 1,
		Total: len(n.spine),
		pos:   pos,
	}
}

// Resolve returns the canonical identifier for id.
func (n *Navigator) Resolve(id string) (string, error) {
	loc, err := n.Locate(id)
	if err != nil {
		return "", err
	}
	return loc.CFI, nil
}

// Locate returns the location id points at without displaying it.
func (n *Navigator) Locate(id string) (Location, error) {
	pos, err := ResolvePosition(n.spine, id)
	if err != nil {
		return Location{}, &NavigationError{Target: id, Err: err}
	}
	return n.locate(pos), nil
}

// CurrentLocation returns the last displayed location, or None before the first render.
func (n *Navigator) CurrentLocation() mo.Option[Location] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// Compare orders two locations by reading order: negative when a comes first.
func (n *Navigator) Compare(a, b Location) int {
	if a.pos.Spine != b.pos.Spine {
		return a.pos.Spine - b.pos.Spine
	}
	return strings.Compare(a.pos.Fragment, b.pos.Fragment)
}

// TableOfContents loads the engine's table of contents once per navigator.
// A failed load is not cached.
func (n *Navigator) TableOfContents(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.tocMu.Lock()
	defer n.tocMu.Unlock()

	if !n.tocLoaded {
		toc, err := n.engine.TableOfContents()
		if err != nil {
			return nil, err
		}
		n.toc = toc
		n.tocLoaded = true
	}
	return n.toc, nil
}

// OnLocationChanged subscribes fn to location changes.
func (n *Navigator) OnLocationChanged(fn Listener) ListenerID {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.listeners = append(n.listeners, subscription{id: n.nextID, fn: fn})
	return n.nextID
}

// OffLocationChanged removes a subscription. It reports whether id was subscribed.
func (n *Navigator) OffLocationChanged(id ListenerID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.listeners {
		if sub.id == id {
			n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
			return true
		}
	}
	return false
}
