package reader

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"

	"github.com/metcalfc/yomu/internal/navigator"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Open reads the container and the first rootfile. The archive stays open
// until the document is closed.
func (f *EPUBFormat) Open(filename string) (Document, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	if len(rc.Rootfiles) == 0 {
		rc.Close()
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	base := path.Dir(book.FullPath)

	doc := &epubDocument{rc: rc, book: book, base: base, title: strings.TrimSpace(book.Title)}
	if doc.title == "" {
		doc.title = titleFromFilename(filename)
	}
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		doc.items = append(doc.items, ref.Item)
		doc.spine = append(doc.spine, navigator.SpineItem{
			Index: len(doc.spine),
			ID:    ref.IDREF,
			Href:  path.Join(base, ref.Item.HREF),
		})
	}
	return doc, nil
}

type epubDocument struct {
	rc    *epub.ReadCloser
	book  *epub.Rootfile
	base  string
	title string
	spine []navigator.SpineItem
	items []*epub.Item
}

func (d *epubDocument) Title() string { return d.title }

func (d *epubDocument) Spine() []navigator.SpineItem {
	out := make([]navigator.SpineItem, len(d.spine))
	copy(out, d.spine)
	return out
}

func (d *epubDocument) Text(spine int) (string, error) {
	if spine < 0 || spine >= len(d.items) {
		return "", fmt.Errorf("spine item %d out of range", spine)
	}
	data, err := readItem(d.items[spine])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", d.spine[spine].Href, err)
	}
	return extractTextFromHTML(string(data)), nil
}

func (d *epubDocument) Close() error {
	d.rc.Close()
	return nil
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// skipText lists elements whose text is never shown.
var skipText = map[string]bool{"script": true, "style": true, "head": true}

func extractTextFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipText[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out.WriteString(t)
				out.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out.String()
}
