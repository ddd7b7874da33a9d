package reader

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/metcalfc/yomu/internal/navigator"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

const ncxMediaType = "application/x-dtbncx+xml"

// TableOfContents returns the NCX tree with hrefs rewritten to archive paths.
// Without an NCX every spine item becomes a top-level entry.
func (d *epubDocument) TableOfContents() ([]navigator.Node, error) {
	for i := range d.book.Manifest.Items {
		item := &d.book.Manifest.Items[i]
		if item.MediaType != ncxMediaType && !strings.HasSuffix(strings.ToLower(item.HREF), ".ncx") {
			continue
		}
		data, err := readItem(item)
		if err != nil {
			return nil, fmt.Errorf("read NCX: %w", err)
		}
		var toc ncx
		if err := xml.Unmarshal(data, &toc); err != nil {
			return nil, fmt.Errorf("failed to parse NCX: %w", err)
		}
		dir := path.Dir(path.Join(d.base, item.HREF))
		return navPointsToNodes(toc.NavMap.NavPoints, dir), nil
	}
	return spineNodes(d.spine), nil
}

func navPointsToNodes(points []navPoint, dir string) []navigator.Node {
	if len(points) == 0 {
		return nil
	}
	nodes := make([]navigator.Node, 0, len(points))
	for _, np := range points {
		href := np.Content.Src
		if href != "" {
			file, fragment, _ := strings.Cut(href, "#")
			href = path.Join(dir, file)
			if fragment != "" {
				href += "#" + fragment
			}
		}
		nodes = append(nodes, navigator.Node{
			ID:       np.ID,
			Href:     href,
			Label:    strings.TrimSpace(np.Label.Text),
			Children: navPointsToNodes(np.Children, dir),
		})
	}
	return nodes
}

func spineNodes(spine []navigator.SpineItem) []navigator.Node {
	nodes := make([]navigator.Node, 0, len(spine))
	for _, item := range spine {
		nodes = append(nodes, navigator.Node{
			ID:    item.ID,
			Href:  item.Href,
			Label: fmt.Sprintf("Section %d", item.Index+1),
		})
	}
	return nodes
}

// FlattenTOC lists nodes depth first with their nesting level.
func FlattenTOC(nodes []navigator.Node) []TOCEntry {
	var out []TOCEntry
	var walk func([]navigator.Node, int)
	walk = func(nodes []navigator.Node, level int) {
		for _, n := range nodes {
			out = append(out, TOCEntry{Node: n, Level: level})
			walk(n.Children, level+1)
		}
	}
	walk(nodes, 0)
	return out
}

// TOCEntry is a node with its depth, for list rendering.
type TOCEntry struct {
	navigator.Node
	Level int
}
