package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/navigator"
)

// MarkdownFormat implements Format for Markdown files. Every header starts a
// new spine item.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

type mdSection struct {
	id    string
	title string
	level int
	lines []string
}

func (f *MarkdownFormat) Open(filename string) (Document, error) {
	data, err := filesystem.API().ReadFile(filename)
	if err != nil {
		return nil, err
	}

	doc := &markdownDocument{title: titleFromFilename(filename)}
	used := make(map[string]int)
	var cur *mdSection
	inFence := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if match := headerRegex.FindStringSubmatch(line); match != nil && !inFence {
			title := strings.TrimSpace(match[2])
			doc.sections = append(doc.sections, mdSection{
				id:    uniqueSlug(title, used),
				title: title,
				level: len(match[1]),
				lines: []string{title},
			})
			cur = &doc.sections[len(doc.sections)-1]
			continue
		}
		if cur == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			doc.sections = append(doc.sections, mdSection{id: uniqueSlug("preface", used)})
			cur = &doc.sections[len(doc.sections)-1]
		}
		cur.lines = append(cur.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func uniqueSlug(title string, used map[string]int) string {
	slug := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "section"
	}
	used[slug]++
	if n := used[slug]; n > 1 {
		slug = fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}

type markdownDocument struct {
	title    string
	sections []mdSection
}

func (d *markdownDocument) Title() string { return d.title }

func (d *markdownDocument) Spine() []navigator.SpineItem {
	out := make([]navigator.SpineItem, len(d.sections))
	for i, s := range d.sections {
		out[i] = navigator.SpineItem{Index: i, ID: s.id, Href: s.id}
	}
	return out
}

func (d *markdownDocument) Text(spine int) (string, error) {
	if spine < 0 || spine >= len(d.sections) {
		return "", fmt.Errorf("spine item %d out of range", spine)
	}
	return strings.TrimSpace(strings.Join(d.sections[spine].lines, "\n")), nil
}

// TableOfContents nests each header under the closest preceding header of a
// lower level. Text before the first header has no entry.
func (d *markdownDocument) TableOfContents() ([]navigator.Node, error) {
	type tocNode struct {
		node     navigator.Node
		level    int
		children []*tocNode
	}
	root := &tocNode{}
	stack := []*tocNode{root}

	for _, s := range d.sections {
		if s.level == 0 {
			continue
		}
		n := &tocNode{node: navigator.Node{ID: s.id, Href: s.id, Label: s.title}, level: s.level}
		for len(stack) > 1 && stack[len(stack)-1].level >= s.level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, n)
		stack = append(stack, n)
	}

	var build func([]*tocNode) []navigator.Node
	build = func(in []*tocNode) []navigator.Node {
		if len(in) == 0 {
			return nil
		}
		out := make([]navigator.Node, len(in))
		for i, n := range in {
			out[i] = n.node
			out[i].Children = build(n.children)
		}
		return out
	}
	return build(root.children), nil
}

func (d *markdownDocument) Close() error { return nil }
