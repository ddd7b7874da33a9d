// Package reader opens documents and provides the RSVP (Rapid Serial Visual
// Presentation) playback surface that shows one spine item word by word.
package reader

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/metcalfc/yomu/internal/cue"
)

const (
	MinWPM  = 100
	MaxWPM  = 1500
	WPMStep = 50
)

// Reader is the playback state for the loaded text. Positions are media time:
// word i is shown at i * Delay().
type Reader struct {
	mu             sync.RWMutex
	words          []string
	sentenceStarts []int
	index          int
	wpm            int
	paused         bool
}

// NewReader creates a paused Reader over text.
func NewReader(text string, wpm int) *Reader {
	r := &Reader{wpm: clampWPM(wpm), paused: true}
	r.Load(text)
	return r
}

// Load replaces the text and rewinds to the first word. The pause flag is kept.
func (r *Reader) Load(text string) {
	words := ParseText(text)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.words = words
	r.sentenceStarts = FindSentenceStarts(words)
	r.index = 0
}

// ParseText splits text into words.
func ParseText(text string) []string {
	return strings.Fields(text)
}

// FindSentenceStarts returns indices of words that start sentences.
func FindSentenceStarts(words []string) []int {
	if len(words) == 0 {
		return nil
	}
	starts := []int{0}
	for i, word := range words {
		if len(word) == 0 {
			continue
		}
		last := strings.TrimRight(word, `"')]”’`)
		if last == "" {
			continue
		}
		switch last[len(last)-1] {
		case '.', '!', '?':
			if i+1 < len(words) {
				starts = append(starts, i+1)
			}
		}
	}
	return starts
}

// GetORPPosition returns the Optimal Recognition Point index for a word.
// This is the character (rune) position where the eye should focus for fastest recognition.
func GetORPPosition(word string) int {
	length := utf8.RuneCountInString(word)
	if length <= 1 {
		return 0
	} else if length <= 5 {
		return 1
	}
	return length / 3
}

// Delay returns the duration each word is shown.
func (r *Reader) Delay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return delay(r.wpm)
}

func delay(wpm int) time.Duration {
	return time.Duration(60.0/float64(wpm)*1000) * time.Millisecond
}

// WPM returns the current words per minute.
func (r *Reader) WPM() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wpm
}

// Faster raises the speed by one step.
func (r *Reader) Faster() { r.setWPM(WPMStep) }

// Slower lowers the speed by one step.
func (r *Reader) Slower() { r.setWPM(-WPMStep) }

func (r *Reader) setWPM(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wpm = clampWPM(r.wpm + delta)
}

func clampWPM(wpm int) int {
	return min(max(wpm, MinWPM), MaxWPM)
}

// CurrentWord returns the word at the current index.
func (r *Reader) CurrentWord() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.index >= 0 && r.index < len(r.words) {
		return r.words[r.index]
	}
	return ""
}

// Progress returns the 1-based word position and the word count.
func (r *Reader) Progress() (current, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.words) == 0 {
		return 0, 0
	}
	return r.index + 1, len(r.words)
}

// Index returns the current word index.
func (r *Reader) Index() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

// Advance moves to the next word. Returns true if there are more words.
func (r *Reader) Advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index < len(r.words)-1 {
		r.index++
		return true
	}
	return false
}

// Position returns the media time of the current word.
func (r *Reader) Position() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Duration(r.index) * delay(r.wpm)
}

// SeekTo moves to the word shown at media time pos, clamped to the text.
func (r *Reader) SeekTo(pos time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := 0
	if pos > 0 {
		i = int(pos / delay(r.wpm))
	}
	r.index = min(i, max(len(r.words)-1, 0))
}

// SeekWord moves to word index i, clamped to the text.
func (r *Reader) SeekWord(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = min(max(i, 0), max(len(r.words)-1, 0))
}

// Pause holds playback.
func (r *Reader) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Play resumes playback.
func (r *Reader) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// Paused reports whether playback is held.
func (r *Reader) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// Cues returns one cue per sentence, timed at the current speed.
func (r *Reader) Cues() *cue.Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cue.FromSentences(r.words, r.sentenceStarts, delay(r.wpm))
}
