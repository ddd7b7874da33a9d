// Package mining stores captured sentences for later study.
package mining

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/where"
)

// FileName is the capture log inside the state directory.
const FileName = "mined.jsonl"

// Entry is one captured sentence.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Document   string    `json:"document"`
	Location   string    `json:"location,omitempty"`
	Href       string    `json:"href,omitempty"`
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Sink appends entries to a JSON lines file.
type Sink struct {
	mu   sync.Mutex
	fs   afero.Afero
	path string
}

// NewSink returns a sink writing to path, or to the state directory when path is empty.
func NewSink(path string) *Sink {
	if path == "" {
		path = filepath.Join(where.State(), FileName)
	}
	return &Sink{fs: filesystem.API(), path: path}
}

// Path returns the capture log location.
func (s *Sink) Path() string {
	return s.path
}

// Append writes e as one line.
func (s *Sink) Append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns every entry in capture order.
func (s *Sink) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.fs.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, n, err)
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}
