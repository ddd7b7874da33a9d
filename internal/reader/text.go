package reader

import (
	"fmt"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/navigator"
)

// TextFormat opens plain text as a single spine item.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt"} }

func (f *TextFormat) Open(filename string) (Document, error) {
	data, err := filesystem.API().ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &textDocument{title: titleFromFilename(filename), text: string(data)}, nil
}

type textDocument struct {
	title string
	text  string
}

func (d *textDocument) Title() string { return d.title }

func (d *textDocument) Spine() []navigator.SpineItem {
	return []navigator.SpineItem{{Index: 0, ID: "text", Href: "text"}}
}

func (d *textDocument) TableOfContents() ([]navigator.Node, error) {
	return nil, nil
}

func (d *textDocument) Text(spine int) (string, error) {
	if spine != 0 {
		return "", fmt.Errorf("spine item %d out of range", spine)
	}
	return d.text, nil
}

func (d *textDocument) Close() error { return nil }
