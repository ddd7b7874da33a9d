// Package navigator moves a reading surface between document locations and
// notifies subscribers of every completed navigation.
package navigator

import (
	"context"
	"errors"
	"fmt"
)

// SpineItem is one content section of a document, in reading order.
type SpineItem struct {
	Index int
	ID    string
	Href  string
}

// Node is a table-of-contents entry. Hrefs are not unique.
type Node struct {
	ID       string
	Href     string
	Label    string
	Children []Node
}

// Position is a resolved location inside the spine.
type Position struct {
	Spine    int
	Fragment string
}

// Location is what subscribers and callers observe. Compare locations with
// Navigator.Compare, never by CFI string.
type Location struct {
	CFI   string
	Href  string
	Page  int
	Total int

	pos Position
}

// Position returns the resolved spine position behind the location.
func (l Location) Position() Position {
	return l.pos
}

// Engine is the rendering engine a Navigator drives.
type Engine interface {
	Spine() []SpineItem
	TableOfContents() ([]Node, error)
	// Render draws pos on the surface. It must not notify anyone.
	Render(ctx context.Context, pos Position) error
}

// ErrUnresolvable is wrapped by NavigationError when an identifier names nothing in the spine.
var ErrUnresolvable = errors.New("unresolvable location")

// NavigationError reports a failed navigation. The current location is unchanged.
type NavigationError struct {
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %q: %v", e.Target, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
