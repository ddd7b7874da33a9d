//go:build !gui

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/yomu/internal/autopause"
	"github.com/metcalfc/yomu/internal/progress"
	"github.com/metcalfc/yomu/internal/reader"
	"github.com/metcalfc/yomu/internal/session"
)

var (
	erpStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000"))

	wordBeforeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	wordAfterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	cueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	tocStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	tocCursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)
)

// Reader controls. Anything these don't claim goes through the configurable
// bindings first.
var controls = struct {
	Play, Faster, Slower, NextSection, PrevSection, TOC, Quit key.Binding
}{
	Play:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/play")),
	Faster:      key.NewBinding(key.WithKeys("+", "=", "up"), key.WithHelp("↑/+", "faster")),
	Slower:      key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("↓/-", "slower")),
	NextSection: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next section")),
	PrevSection: key.NewBinding(key.WithKeys("N", "b"), key.WithHelp("N", "previous section")),
	TOC:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// physicalKeys maps bubbletea key names to the identifiers stored in key bindings.
var physicalKeys = map[string]string{
	"right":     "ArrowRight",
	"left":      "ArrowLeft",
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"enter":     "Enter",
	"esc":       "Escape",
	"tab":       "Tab",
	"backspace": "Backspace",
	"home":      "Home",
	"end":       "End",
	"pgup":      "PageUp",
	"pgdown":    "PageDown",
}

func physicalKey(msg tea.KeyMsg) string {
	name := msg.String()
	if k, ok := physicalKeys[name]; ok {
		return k
	}
	return name
}

type model struct {
	ctx     context.Context
	session *session.Session
	help    help.Model

	toc       []reader.TOCEntry
	tocOpen   bool
	tocCursor int

	fetch        func(context.Context) []progress.Achievement
	achievements string

	// gen tags tick chains; only the newest chain advances playback.
	gen      int
	quitting bool
	width    int
	height   int
}

type tickMsg struct {
	gen int
}

type achievementsMsg []progress.Achievement

func newModel(ctx context.Context, s *session.Session, opts readOptions) model {
	m := model{
		ctx:     ctx,
		session: s,
		help:    help.New(),
		fetch:   opts.Achievements,
		width:   80,
		height:  24,
	}
	if nodes, err := s.TableOfContents(ctx); err == nil {
		m.toc = reader.FlattenTOC(nodes)
	}
	m.tocOpen = opts.ShowTOC && len(m.toc) > 0
	return m
}

func (m model) Init() tea.Cmd {
	if m.fetch == nil {
		return nil
	}
	fetch, ctx := m.fetch, m.ctx
	return func() tea.Msg {
		return achievementsMsg(fetch(ctx))
	}
}

// restart starts a new tick chain when playback is running.
func (m model) restart() (model, tea.Cmd) {
	m.gen++
	if m.session.Snapshot().Paused {
		return m, nil
	}
	return m, tick(m.gen, m.session.Delay())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.tocOpen {
			return m.updateTOC(msg)
		}
		return m.updateReading(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if m.session.Tick(m.ctx) {
			return m, tick(m.gen, m.session.Delay())
		}
		return m, nil

	case achievementsMsg:
		m.achievements = achievementSummary(msg)
		return m, nil
	}

	return m, nil
}

func (m model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session.HandleKey(physicalKey(msg)) {
		return m.restart()
	}

	switch {
	case key.Matches(msg, controls.Play):
		m.session.TogglePlay()
	case key.Matches(msg, controls.Faster):
		m.session.Faster()
	case key.Matches(msg, controls.Slower):
		m.session.Slower()
	case key.Matches(msg, controls.NextSection):
		_ = m.session.NextSection(m.ctx)
	case key.Matches(msg, controls.PrevSection):
		_ = m.session.PrevSection(m.ctx)
	case key.Matches(msg, controls.TOC):
		if len(m.toc) == 0 {
			return m, nil
		}
		m.tocOpen = true
		if !m.session.Snapshot().Paused {
			m.session.TogglePlay()
		}
	case key.Matches(msg, controls.Quit):
		m.quitting = true
		return m, tea.Quit
	default:
		return m, nil
	}
	return m.restart()
}

func (m model) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.tocCursor > 0 {
			m.tocCursor--
		}
	case "down", "j":
		if m.tocCursor < len(m.toc)-1 {
			m.tocCursor++
		}
	case "enter":
		m.tocOpen = false
		_ = m.session.GoTo(m.ctx, m.toc[m.tocCursor].Href)
		return m.restart()
	case "t", "esc":
		m.tocOpen = false
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	snap := m.session.Snapshot()

	if m.quitting {
		if snap.Done {
			return completeStyle.Render("\n  Reading complete!\n")
		}
		return ""
	}

	if m.tocOpen {
		return m.viewTOC()
	}

	status := statusStyle.Render(statusLine(snap))
	bindings := append([]key.Binding{controls.Play, controls.Faster, controls.Slower, controls.NextSection}, m.session.Help()...)
	if len(m.toc) > 0 {
		bindings = append(bindings, controls.TOC)
	}
	footer := m.help.ShortHelpView(append(bindings, controls.Quit))

	var lines []string
	if c, ok := snap.Cue.Get(); ok {
		lines = append(lines, cueStyle.Render(truncate(c.Text, m.width-2)))
	}
	if snap.Status != "" {
		lines = append(lines, statusStyle.Render(snap.Status))
	}
	if m.achievements != "" {
		lines = append(lines, statusStyle.Render(m.achievements))
	}

	// status on top, footer plus info lines at the bottom
	avail := m.height - 2 - len(lines)
	if avail < 1 {
		avail = 1
	}
	vPad := avail / 2

	var sb strings.Builder
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("\n", vPad))

	switch {
	case snap.Done:
		sb.WriteString(anchorORPText(completeStyle.Render("The end."), "The end.", m.width))
	case snap.Word == "":
		sb.WriteString(anchorORPText("(empty section)", "(empty section)", m.width))
	default:
		sb.WriteString(anchorORPText(formatWord(snap.Word), snap.Word, m.width))
	}

	sb.WriteString(strings.Repeat("\n", avail-vPad))
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(footer)

	return sb.String()
}

func (m model) viewTOC() string {
	var sb strings.Builder
	sb.WriteString(statusStyle.Render("Table of Contents  (enter: jump, t/esc: close)"))
	sb.WriteString("\n\n")

	// keep the cursor in view
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.tocCursor >= rows {
		start = m.tocCursor - rows + 1
	}
	end := min(start+rows, len(m.toc))

	for i := start; i < end; i++ {
		entry := m.toc[i]
		line := strings.Repeat("  ", entry.Level) + entry.Label
		if i == m.tocCursor {
			sb.WriteString(tocCursorStyle.Render("> " + line))
		} else {
			sb.WriteString(tocStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func statusLine(snap session.Snapshot) string {
	page := ""
	if loc, ok := snap.Location.Get(); ok {
		page = fmt.Sprintf("Section %d/%d | ", loc.Page, loc.Total)
	}

	line := fmt.Sprintf("%s | %sWord %d/%d | %d WPM", snap.Title, page, snap.Index, snap.Words, snap.WPM)
	if snap.AutoPause != autopause.Idle {
		line += " | auto-pause " + snap.AutoPause.String()
	}
	if snap.Offset != 0 {
		line += fmt.Sprintf(" | offset %+dms", snap.Offset.Milliseconds())
	}
	if snap.Paused && !snap.Done {
		line += pausedStyle.Render(" [PAUSED]")
	}
	return line
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func formatWord(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return ""
	}
	orp := reader.GetORPPosition(word)
	if orp >= len(runes) {
		orp = len(runes) - 1
	}

	before := string(runes[:orp])
	focus := string(runes[orp])
	after := ""
	if orp+1 < len(runes) {
		after = string(runes[orp+1:])
	}

	return wordBeforeStyle.Render(before) +
		erpStyle.Render(focus) +
		wordAfterStyle.Render(after)
}

func anchorORPText(text string, word string, width int) string {
	anchor := width / 2
	orp := reader.GetORPPosition(word)
	pad := anchor - orp
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + text
}

func tick(gen int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func runReader(ctx context.Context, s *session.Session, opts readOptions) error {
	p := tea.NewProgram(newModel(ctx, s, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
