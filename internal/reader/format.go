package reader

import (
	"path/filepath"
	"strings"

	"github.com/metcalfc/yomu/internal/navigator"
)

// Document is an opened file split into spine items.
type Document interface {
	Title() string
	Spine() []navigator.SpineItem
	TableOfContents() ([]navigator.Node, error)
	// Text returns the plain text of one spine item.
	Text(spine int) (string, error)
	Close() error
}

// Format opens files of one kind.
type Format interface {
	Name() string
	Extensions() []string
	Open(filename string) (Document, error)
}

var registry []Format

// Register adds a format to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Open opens filename with the format registered for its extension, or as plain text.
func Open(filename string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f.Open(filename)
			}
		}
	}
	return (&TextFormat{}).Open(filename)
}

// ExtractText returns the text of every spine item of filename, in reading order.
func ExtractText(filename string) (string, error) {
	doc, err := Open(filename)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var out strings.Builder
	for _, item := range doc.Spine() {
		text, err := doc.Text(item.Index)
		if err != nil {
			return "", err
		}
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}
