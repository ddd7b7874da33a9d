// Package cue models timed segments of a media timeline.
package cue

import (
	"sort"
	"strings"
	"time"
)

// Cue is one timed segment. Start is inclusive, End exclusive.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Contains reports whether pos falls inside the cue.
func (c Cue) Contains(pos time.Duration) bool {
	return pos >= c.Start && pos < c.End
}

// Track is an ordered list of cues.
type Track struct {
	cues []Cue
}

// NewTrack sorts cues by start and renumbers them in playback order.
func NewTrack(cues []Cue) *Track {
	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := range sorted {
		sorted[i].Index = i
	}
	return &Track{cues: sorted}
}

// FromSentences builds one cue per sentence of an RSVP word stream where every
// word is shown for delay.
func FromSentences(words []string, sentenceStarts []int, delay time.Duration) *Track {
	if len(words) == 0 {
		return NewTrack(nil)
	}

	cues := make([]Cue, 0, len(sentenceStarts))
	for i, start := range sentenceStarts {
		end := len(words)
		if i+1 < len(sentenceStarts) {
			end = sentenceStarts[i+1]
		}
		if start >= end {
			continue
		}
		cues = append(cues, Cue{
			Start: time.Duration(start) * delay,
			End:   time.Duration(end) * delay,
			Text:  strings.Join(words[start:end], " "),
		})
	}
	return NewTrack(cues)
}

// Len returns the number of cues.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.cues)
}

// Cues returns a copy of the cues.
func (t *Track) Cues() []Cue {
	if t == nil {
		return nil
	}
	out := make([]Cue, len(t.cues))
	copy(out, t.cues)
	return out
}

// Get returns the cue at index i.
func (t *Track) Get(i int) (Cue, bool) {
	if t == nil || i < 0 || i >= len(t.cues) {
		return Cue{}, false
	}
	return t.cues[i], true
}

// At returns the cue containing pos.
func (t *Track) At(pos time.Duration) (Cue, bool) {
	if t == nil {
		return Cue{}, false
	}
	// Last cue starting at or before pos.
	i := sort.Search(len(t.cues), func(i int) bool { return t.cues[i].Start > pos }) - 1
	for ; i >= 0; i-- {
		if t.cues[i].Contains(pos) {
			return t.cues[i], true
		}
		if t.cues[i].End <= pos {
			break
		}
	}
	return Cue{}, false
}

// Next returns the first cue starting strictly after pos.
func (t *Track) Next(pos time.Duration) (Cue, bool) {
	if t == nil {
		return Cue{}, false
	}
	i := sort.Search(len(t.cues), func(i int) bool { return t.cues[i].Start > pos })
	if i < len(t.cues) {
		return t.cues[i], true
	}
	return Cue{}, false
}

// Previous returns the last cue starting before pos, which is the current cue when
// pos is mid-cue. Before the first cue it returns the first cue.
func (t *Track) Previous(pos time.Duration) (Cue, bool) {
	if t == nil || len(t.cues) == 0 {
		return Cue{}, false
	}
	i := sort.Search(len(t.cues), func(i int) bool { return t.cues[i].Start >= pos }) - 1
	if i < 0 {
		return t.cues[0], true
	}
	return t.cues[i], true
}

// Tracked returns the cue auto-pause follows at pos: the cue containing pos, or
// else the next cue to start.
func (t *Track) Tracked(pos time.Duration) (Cue, bool) {
	if c, ok := t.At(pos); ok {
		return c, true
	}
	return t.Next(pos)
}
