package navigator

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// cfiRegex matches the subset of EPUB CFIs this package produces:
// epubcfi(/6/<step>[<idref>]!) with an optional /4[<fragment>] element step.
// Assertions may carry ^-escaped characters.
var cfiRegex = regexp.MustCompile(`^epubcfi\(/6/(\d+)(?:\[((?:[^\]^]|\^.)*)\])?!(?:/4\[((?:[^\]^]|\^.)*)\])?\)$`)

var (
	cfiEscaper   = strings.NewReplacer("^", "^^", "[", "^[", "]", "^]", "(", "^(", ")", "^)", ",", "^,", ";", "^;")
	cfiUnescapes = regexp.MustCompile(`(?s)\^(.)`)
)

func escapeCFI(s string) string { return cfiEscaper.Replace(s) }

func unescapeCFI(s string) string { return cfiUnescapes.ReplaceAllString(s, "$1") }

// Canonical returns the CFI for pos within spine.
func Canonical(spine []SpineItem, pos Position) string {
	step := 2 * (pos.Spine + 1)
	id := ""
	if pos.Spine >= 0 && pos.Spine < len(spine) {
		id = spine[pos.Spine].ID
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "epubcfi(/6/%d", step)
	if id != "" {
		fmt.Fprintf(&sb, "[%s]", escapeCFI(id))
	}
	sb.WriteString("!")
	if pos.Fragment != "" {
		fmt.Fprintf(&sb, "/4[%s]", escapeCFI(pos.Fragment))
	}
	sb.WriteString(")")
	return sb.String()
}

// ResolvePosition maps a location identifier to a spine position. Accepted forms:
// a CFI, an href with optional #fragment (full path or basename), or #<n> for the
// n-th spine item counting from 1.
func ResolvePosition(spine []SpineItem, id string) (Position, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(spine) == 0 {
		return Position{}, ErrUnresolvable
	}

	if strings.HasPrefix(id, "epubcfi(") {
		return resolveCFI(spine, id)
	}

	if strings.HasPrefix(id, "#") {
		n, err := strconv.Atoi(id[1:])
		if err != nil || n < 1 || n > len(spine) {
			return Position{}, ErrUnresolvable
		}
		return Position{Spine: n - 1}, nil
	}

	href, fragment, _ := strings.Cut(id, "#")
	for _, item := range spine {
		if item.Href == href {
			return Position{Spine: item.Index, Fragment: fragment}, nil
		}
	}
	for _, item := range spine {
		if path.Base(item.Href) == path.Base(href) {
			return Position{Spine: item.Index, Fragment: fragment}, nil
		}
	}
	return Position{}, ErrUnresolvable
}

func resolveCFI(spine []SpineItem, id string) (Position, error) {
	m := cfiRegex.FindStringSubmatch(id)
	if m == nil {
		return Position{}, ErrUnresolvable
	}
	step, err := strconv.Atoi(m[1])
	if err != nil || step < 2 || step%2 != 0 {
		return Position{}, ErrUnresolvable
	}
	index := step/2 - 1
	if index >= len(spine) {
		return Position{}, ErrUnresolvable
	}
	if idref := unescapeCFI(m[2]); idref != "" && idref != spine[index].ID {
		return Position{}, ErrUnresolvable
	}
	return Position{Spine: index, Fragment: unescapeCFI(m[3])}, nil
}
