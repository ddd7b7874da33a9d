//go:build !gui

package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/logging"
	"github.com/metcalfc/yomu/internal/mining"
	"github.com/metcalfc/yomu/internal/progress"
	"github.com/metcalfc/yomu/internal/session"
	"github.com/metcalfc/yomu/internal/settings"
	"github.com/metcalfc/yomu/internal/state"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPhysicalKey(t *testing.T) {
	tests := []struct {
		msg  tea.KeyMsg
		want string
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, "ArrowRight"},
		{tea.KeyMsg{Type: tea.KeyLeft}, "ArrowLeft"},
		{tea.KeyMsg{Type: tea.KeyEnter}, "Enter"},
		{tea.KeyMsg{Type: tea.KeySpace}, " "},
		{runes("m"), "m"},
		{runes("["), "["},
	}
	for _, tt := range tests {
		if got := physicalKey(tt.msg); got != tt.want {
			t.Errorf("physicalKey(%v) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestFormatWord(t *testing.T) {
	// Styling must not change the visible width
	if w := lipgloss.Width(formatWord("reading")); w != 7 {
		t.Errorf("Expected width 7, got %d", w)
	}
	if w := lipgloss.Width(formatWord("naïve")); w != 5 {
		t.Errorf("Expected width 5 for multibyte word, got %d", w)
	}
	if got := formatWord(""); got != "" {
		t.Errorf("Expected empty output for empty word, got %q", got)
	}
}

func TestAnchorORPText(t *testing.T) {
	if got, want := anchorORPText("hello", "hello", 20), strings.Repeat(" ", 9)+"hello"; got != want {
		t.Errorf("anchorORPText() = %q, want %q", got, want)
	}
	// Narrow terminals don't get negative padding
	if got := anchorORPText("elephants", "elephants", 2); got != "elephants" {
		t.Errorf("anchorORPText() = %q, want no padding", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q, want short", got)
	}
	if got := truncate("a long sentence", 9); got != "a long..." {
		t.Errorf("truncate() = %q, want %q", got, "a long...")
	}
}

func newTestSession(t *testing.T) (*session.Session, *settings.Store) {
	t.Helper()
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)

	book := "# First\nOne two. Three four.\n\n# Second\nFive six.\n"
	if err := filesystem.API().WriteFile("/books/book.md", []byte(book), 0644); err != nil {
		t.Fatalf("Failed to write test book: %v", err)
	}

	store := settings.NewStore(settings.WithPath("/state/player-settings.json"), settings.WithLogger(logging.Discard()))
	s, err := session.Open(context.Background(), session.Options{
		Path:      "/books/book.md",
		WPM:       600,
		Settings:  store,
		Positions: state.NewStoreAt("/state/reading-positions.json"),
		Mined:     mining.NewSink("/state/mined.jsonl"),
		Log:       logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, store
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func page(t *testing.T, s *session.Session) int {
	t.Helper()
	loc, ok := s.Snapshot().Location.Get()
	if !ok {
		t.Fatal("Expected a displayed location")
	}
	return loc.Page
}

func TestModelPlayAndTick(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{})
	if m.Init() != nil {
		t.Error("Init() should return nil without an achievements fetcher")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if cmd == nil {
		t.Fatal("Play should start a tick chain")
	}
	if s.Snapshot().Paused {
		t.Error("Expected playback to be running")
	}
	if m.gen != 1 {
		t.Errorf("gen = %d, want 1", m.gen)
	}

	// Ticks from an older chain are dropped
	m, cmd = update(t, m, tickMsg{gen: 0})
	if cmd != nil {
		t.Error("Stale tick should not schedule another")
	}
	if w := s.Snapshot().Word; w != "First" {
		t.Errorf("Stale tick advanced to %q", w)
	}

	m, cmd = update(t, m, tickMsg{gen: m.gen})
	if cmd == nil {
		t.Error("Current tick should schedule the next one")
	}
	if w := s.Snapshot().Word; w != "One" {
		t.Errorf("Word after tick = %q, want One", w)
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if cmd != nil {
		t.Error("Pause should not schedule a tick")
	}
	if !s.Snapshot().Paused {
		t.Error("Expected playback to be paused")
	}
	if m.gen != 2 {
		t.Errorf("gen = %d, want 2", m.gen)
	}
}

func TestModelSpeedKeys(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{})

	m, _ = update(t, m, runes("+"))
	if wpm := s.Snapshot().WPM; wpm != 650 {
		t.Errorf("WPM after + = %d, want 650", wpm)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if wpm := s.Snapshot().WPM; wpm != 550 {
		t.Errorf("WPM after down twice = %d, want 550", wpm)
	}
}

func TestModelBoundKeysGoFirst(t *testing.T) {
	s, store := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{})

	m, _ = update(t, m, runes("p"))
	if !store.Settings().AutoPause.Enabled {
		t.Error("p should toggle auto-pause")
	}

	m, _ = update(t, m, runes("]"))
	if !strings.Contains(m.View(), "offset +100ms") {
		t.Error("] should shift the subtitle offset")
	}

	// A rebound quit key is no longer a quit key
	if err := store.SetKeyBinding(settings.MineSentence, "q"); err != nil {
		t.Fatalf("SetKeyBinding failed: %v", err)
	}
	m, cmd := update(t, m, runes("q"))
	if cmd != nil || m.quitting {
		t.Error("q bound to an action should not quit")
	}

	if _, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Error("ctrl+c should always quit")
	}
}

func TestModelSections(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{})

	m, _ = update(t, m, runes("n"))
	if p := page(t, s); p != 2 {
		t.Errorf("Page after n = %d, want 2", p)
	}
	_, _ = update(t, m, runes("N"))
	if p := page(t, s); p != 1 {
		t.Errorf("Page after N = %d, want 1", p)
	}
}

func TestModelTOC(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{ShowTOC: true})
	if len(m.toc) != 2 {
		t.Fatalf("Expected 2 TOC entries, got %d", len(m.toc))
	}
	if !m.tocOpen {
		t.Error("TOC should open at startup with ShowTOC")
	}
	if !strings.Contains(m.View(), "> First") {
		t.Error("Cursor should start on the first entry")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if !strings.Contains(m.View(), "> Second") {
		t.Error("Down should move the cursor")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.tocOpen {
		t.Error("Enter should close the TOC")
	}
	if p := page(t, s); p != 2 {
		t.Errorf("Page after jump = %d, want 2", p)
	}
	if w := s.Snapshot().Word; w != "Second" {
		t.Errorf("Word after jump = %q, want Second", w)
	}

	m, _ = update(t, m, runes("t"))
	if !m.tocOpen {
		t.Error("t should reopen the TOC")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.tocOpen {
		t.Error("esc should close the TOC")
	}
}

func TestModelView(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})

	view := m.View()
	for _, want := range []string{"Section 1/2", "600 WPM", "[PAUSED]", "pause/play", "mine sentence"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModelAchievements(t *testing.T) {
	s, _ := newTestSession(t)
	fetch := func(context.Context) []progress.Achievement {
		return []progress.Achievement{{ID: "a"}}
	}
	m := newModel(context.Background(), s, readOptions{Achievements: fetch})

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init() should fetch achievements")
	}
	m, _ = update(t, m, cmd())
	if !strings.Contains(m.View(), "0/1 achievements unlocked") {
		t.Error("View() should show the achievement summary")
	}
}

func TestModelQuit(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), s, readOptions{})

	m, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if !m.quitting {
		t.Error("Expected quitting to be set")
	}
	if v := m.View(); v != "" {
		t.Errorf("View() while quitting mid-book = %q, want empty", v)
	}
}
