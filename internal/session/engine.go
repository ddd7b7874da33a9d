package session

import (
	"context"

	"github.com/metcalfc/yomu/internal/navigator"
	"github.com/metcalfc/yomu/internal/reader"
)

// engine renders spine items of a document onto the RSVP surface.
type engine struct {
	doc     reader.Document
	surface *reader.Reader
}

func (e engine) Spine() []navigator.SpineItem {
	return e.doc.Spine()
}

func (e engine) TableOfContents() ([]navigator.Node, error) {
	return e.doc.TableOfContents()
}

func (e engine) Render(ctx context.Context, pos navigator.Position) error {
	text, err := e.doc.Text(pos.Spine)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.surface.Load(text)
	return nil
}
