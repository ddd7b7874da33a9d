package cue

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ms = time.Millisecond

func testTrack() *Track {
	return NewTrack([]Cue{
		{Start: 3000 * ms, End: 4000 * ms, Text: "third"},
		{Start: 0, End: 1000 * ms, Text: "first"},
		{Start: 1500 * ms, End: 2500 * ms, Text: "second"},
	})
}

func TestNewTrackSortsAndRenumbers(t *testing.T) {
	track := testTrack()
	require.Equal(t, 3, track.Len())
	for i, c := range track.Cues() {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, []string{"first", "second", "third"}, texts(track))
}

func TestAt(t *testing.T) {
	track := testTrack()

	tests := []struct {
		pos  time.Duration
		want string
		ok   bool
	}{
		{0, "first", true},
		{999 * ms, "first", true},
		{1000 * ms, "", false},
		{1500 * ms, "second", true},
		{2600 * ms, "", false},
		{3999 * ms, "third", true},
		{4000 * ms, "", false},
	}
	for _, tt := range tests {
		c, ok := track.At(tt.pos)
		assert.Equal(t, tt.ok, ok, tt.pos)
		assert.Equal(t, tt.want, c.Text, tt.pos)
	}
}

func TestNextAndPrevious(t *testing.T) {
	track := testTrack()

	c, ok := track.Next(0)
	require.True(t, ok)
	assert.Equal(t, "second", c.Text)

	_, ok = track.Next(3000 * ms)
	assert.False(t, ok)

	c, ok = track.Previous(2000 * ms)
	require.True(t, ok)
	assert.Equal(t, "second", c.Text)

	c, ok = track.Previous(1500 * ms)
	require.True(t, ok)
	assert.Equal(t, "first", c.Text)

	c, ok = track.Previous(0)
	require.True(t, ok)
	assert.Equal(t, "first", c.Text)
}

func TestTracked(t *testing.T) {
	track := testTrack()

	c, ok := track.Tracked(1200 * ms)
	require.True(t, ok)
	assert.Equal(t, "second", c.Text)

	c, ok = track.Tracked(500 * ms)
	require.True(t, ok)
	assert.Equal(t, "first", c.Text)

	_, ok = track.Tracked(5000 * ms)
	assert.False(t, ok)
}

func TestFromSentences(t *testing.T) {
	words := strings.Fields("Hello there. How are you? Fine")
	track := FromSentences(words, []int{0, 2, 5}, 200*ms)

	require.Equal(t, 3, track.Len())
	cues := track.Cues()
	assert.Equal(t, Cue{Index: 0, Start: 0, End: 400 * ms, Text: "Hello there."}, cues[0])
	assert.Equal(t, Cue{Index: 1, Start: 400 * ms, End: 1000 * ms, Text: "How are you?"}, cues[1])
	assert.Equal(t, Cue{Index: 2, Start: 1000 * ms, End: 1200 * ms, Text: "Fine"}, cues[2])
}

func TestNilTrack(t *testing.T) {
	var track *Track
	assert.Equal(t, 0, track.Len())
	_, ok := track.At(0)
	assert.False(t, ok)
	_, ok = track.Tracked(0)
	assert.False(t, ok)
	_, ok = track.Previous(0)
	assert.False(t, ok)

	assert.Equal(t, 0, FromSentences(nil, []int{0}, ms).Len())
}

func texts(t *Track) []string {
	var out []string
	for _, c := range t.Cues() {
		out = append(out, c.Text)
	}
	return out
}
