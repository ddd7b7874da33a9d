//go:build gui

package main

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/yomu/internal/autopause"
	"github.com/metcalfc/yomu/internal/reader"
	"github.com/metcalfc/yomu/internal/session"
)

// physicalKeys maps fyne key names to the identifiers stored in key bindings.
var physicalKeys = map[fyne.KeyName]string{
	fyne.KeyRight:     "ArrowRight",
	fyne.KeyLeft:      "ArrowLeft",
	fyne.KeyUp:        "ArrowUp",
	fyne.KeyDown:      "ArrowDown",
	fyne.KeyReturn:    "Enter",
	fyne.KeyEscape:    "Escape",
	fyne.KeyTab:       "Tab",
	fyne.KeyBackspace: "Backspace",
	fyne.KeyHome:      "Home",
	fyne.KeyEnd:       "End",
	fyne.KeyPageUp:    "PageUp",
	fyne.KeyPageDown:  "PageDown",
}

func createWordDisplay(word string, fontSize float32, windowWidth float32) *fyne.Container {
	runes := []rune(word)
	orp := reader.GetORPPosition(word)

	if orp >= len(runes) {
		orp = len(runes) - 1
	}
	if orp < 0 {
		orp = 0
	}

	before, focus, after := "", "", ""
	if len(runes) > 0 {
		before = string(runes[:orp])
		focus = string(runes[orp])
		after = string(runes[orp+1:])
	}

	beforeText := canvas.NewText(before, color.White)
	beforeText.TextSize = fontSize
	beforeText.TextStyle.Bold = true

	focusText := canvas.NewText(focus, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	focusText.TextSize = fontSize
	focusText.TextStyle.Bold = true

	afterText := canvas.NewText(after, color.White)
	afterText.TextSize = fontSize
	afterText.TextStyle.Bold = true

	// anchor the ORP at the horizontal center
	centerX := windowWidth / 2
	beforeX := centerX - beforeText.MinSize().Width
	afterX := centerX + focusText.MinSize().Width
	if beforeX < 0 {
		beforeX = 0
	}

	c := &fyne.Container{
		Layout:  &centerVerticalLayout{},
		Objects: []fyne.CanvasObject{beforeText, focusText, afterText},
	}

	beforeText.Move(fyne.NewPos(beforeX, 0))
	focusText.Move(fyne.NewPos(centerX, 0))
	afterText.Move(fyne.NewPos(afterX, 0))

	return c
}

// centerVerticalLayout centers its objects vertically and keeps their X.
type centerVerticalLayout struct{}

func (l *centerVerticalLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(0, maxHeight(objects))
}

func (l *centerVerticalLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	y := (size.Height - maxHeight(objects)) / 2
	if y < 0 {
		y = 0
	}
	for _, o := range objects {
		o.Move(fyne.NewPos(o.Position().X, y))
		o.Resize(o.MinSize())
	}
}

func maxHeight(objects []fyne.CanvasObject) float32 {
	var maxH float32
	for _, o := range objects {
		if h := o.MinSize().Height; h > maxH {
			maxH = h
		}
	}
	return maxH
}

func helpText(s *session.Session, hasTOC bool) string {
	parts := []string{"SPACE: pause", "↑/↓: speed", "+/-: font", "n/N: section"}
	for _, b := range s.Help() {
		parts = append(parts, fmt.Sprintf("%s: %s", b.Help().Key, b.Help().Desc))
	}
	if hasTOC {
		parts = append(parts, "T: TOC")
	}
	return strings.Join(append(parts, "F: fullscreen", "Q: quit"), "  ")
}

func runReader(ctx context.Context, s *session.Session, opts readOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fontSize := float32(72)

	var toc []reader.TOCEntry
	if nodes, err := s.TableOfContents(ctx); err == nil {
		toc = reader.FlattenTOC(nodes)
	}
	tocVisible := opts.ShowTOC && len(toc) > 0

	a := app.New()
	w := a.NewWindow("yomu - " + s.Snapshot().Title)

	statusLabel := widget.NewLabel("")
	statusLabel.Alignment = fyne.TextAlignCenter
	cueLabel := widget.NewLabel("")
	cueLabel.Alignment = fyne.TextAlignCenter
	cueLabel.Wrapping = fyne.TextWrapWord
	controlsLabel := widget.NewLabel(helpText(s, len(toc) > 0))
	controlsLabel.Alignment = fyne.TextAlignCenter
	controlsLabel.Wrapping = fyne.TextWrapWord

	wordContainer := container.NewStack()

	updateDisplay := func() {
		snap := s.Snapshot()

		canvasWidth := w.Canvas().Size().Width
		if canvasWidth <= 0 {
			canvasWidth = 800
		}
		word := snap.Word
		if snap.Done {
			word = "The end."
		}
		wordContainer.Objects = []fyne.CanvasObject{createWordDisplay(word, fontSize, canvasWidth)}
		wordContainer.Refresh()

		status := statusLine(snap)
		if snap.Status != "" {
			status += " | " + snap.Status
		}
		statusLabel.SetText(status)

		cueText := ""
		if c, ok := snap.Cue.Get(); ok {
			cueText = c.Text
		}
		cueLabel.SetText(cueText)
	}

	readingContent := container.NewBorder(
		statusLabel,
		container.NewVBox(cueLabel, controlsLabel),
		nil, nil,
		wordContainer,
	)

	var tocPanel *container.Split
	mainContainer := container.NewStack(readingContent)

	if len(toc) > 0 {
		tocList := widget.NewList(
			func() int { return len(toc) },
			func() fyne.CanvasObject { return widget.NewLabel("Title") },
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				entry := toc[id]
				obj.(*widget.Label).SetText(strings.Repeat("  ", entry.Level) + entry.Label)
			},
		)

		tocContainer := container.NewBorder(
			widget.NewLabel("Table of Contents"),
			widget.NewLabel("Click to jump • T to close"),
			nil, nil,
			tocList,
		)
		tocPanel = container.NewHSplit(tocContainer, readingContent)
		tocPanel.Offset = 0.33
		if !tocVisible {
			tocContainer.Hide()
		}

		tocList.OnSelected = func(id widget.ListItemID) {
			if err := s.GoTo(ctx, toc[id].Href); err != nil {
				statusLabel.SetText(err.Error())
			}
			tocVisible = false
			tocPanel.Leading.Hide()
			tocPanel.Refresh()
			tocList.UnselectAll()
			updateDisplay()
		}
		mainContainer = container.NewStack(tocPanel)
	}

	ticker := time.NewTicker(s.Delay())
	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() {
		closeOnce.Do(func() {
			ticker.Stop()
			close(done)
		})
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if s.Snapshot().Paused {
					continue
				}
				s.Tick(ctx)
				ticker.Reset(s.Delay())
				fyne.Do(updateDisplay)
			}
		}
	}()

	if opts.Achievements != nil {
		go func() {
			summary := achievementSummary(opts.Achievements(ctx))
			if summary == "" {
				return
			}
			fyne.Do(func() {
				w.SetTitle("yomu - " + s.Snapshot().Title + " (" + summary + ")")
			})
		}()
	}

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if k, ok := physicalKeys[ev.Name]; ok && s.HandleKey(k) {
			updateDisplay()
			return
		}

		switch ev.Name {
		case fyne.KeySpace:
			s.TogglePlay()
		case fyne.KeyUp:
			s.Faster()
			ticker.Reset(s.Delay())
		case fyne.KeyDown:
			s.Slower()
			ticker.Reset(s.Delay())
		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
		case fyne.KeyQ:
			stop()
			a.Quit()
			return
		default:
			return
		}
		updateDisplay()
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		if r == ' ' {
			return
		}
		if s.HandleKey(string(r)) {
			updateDisplay()
			return
		}

		switch r {
		case 't', 'T':
			if tocPanel == nil {
				return
			}
			tocVisible = !tocVisible
			if tocVisible {
				if !s.Snapshot().Paused {
					s.TogglePlay()
				}
				tocPanel.Leading.Show()
			} else {
				tocPanel.Leading.Hide()
			}
			tocPanel.Refresh()
		case 'n':
			_ = s.NextSection(ctx)
		case 'N', 'b':
			_ = s.PrevSection(ctx)
		case 'r', 'R':
			_ = s.GoTo(ctx, "#1")
		case '+', '=':
			if fontSize < 200 {
				fontSize += 5
			}
		case '-':
			if fontSize > 20 {
				fontSize -= 5
			}
		default:
			return
		}
		updateDisplay()
	})

	w.Resize(fyne.NewSize(800, 600))
	w.SetContent(mainContainer)
	w.SetOnClosed(stop)

	// first word once the window has a size
	go func() {
		time.Sleep(100 * time.Millisecond)
		fyne.Do(updateDisplay)
	}()

	w.ShowAndRun()
	stop()
	return nil
}

// statusLine mirrors the terminal status bar without terminal styling.
func statusLine(snap session.Snapshot) string {
	line := fmt.Sprintf("%s | Word %d/%d | %d WPM", snap.Title, snap.Index, snap.Words, snap.WPM)
	if loc, ok := snap.Location.Get(); ok {
		line = fmt.Sprintf("%s | Section %d/%d | Word %d/%d | %d WPM", snap.Title, loc.Page, loc.Total, snap.Index, snap.Words, snap.WPM)
	}
	if snap.AutoPause != autopause.Idle {
		line += " | auto-pause " + snap.AutoPause.String()
	}
	if snap.Offset != 0 {
		line += fmt.Sprintf(" | offset %+dms", snap.Offset.Milliseconds())
	}
	if snap.Paused && !snap.Done {
		line += " [PAUSED]"
	}
	if p, ok := snap.LastPause.Get(); ok && snap.Paused {
		line += fmt.Sprintf(" at cue %s", p.Boundary)
	}
	return line
}
