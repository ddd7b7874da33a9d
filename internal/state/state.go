// Package state remembers where each document was left off.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/metafates/gache"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/where"
)

const (
	FileName  = "reading-positions.json"
	hashBytes = 8192 // First 8KB for content hash
)

// Position is the saved resume point for one document.
type Position struct {
	// Location is the canonical location identifier of the spine item.
	Location  string    `json:"location"`
	Word      int       `json:"word"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store manages persisted resume points keyed by content hash.
type Store struct {
	mu    sync.Mutex
	cache *gache.Cache[map[string]*Position]
}

// NewStore opens the positions file in the state directory.
func NewStore() *Store {
	return NewStoreAt(filepath.Join(where.State(), FileName))
}

// NewStoreAt opens the positions file at path.
func NewStoreAt(path string) *Store {
	return &Store{
		cache: gache.New[map[string]*Position](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := filesystem.API().Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

func (s *Store) all() (map[string]*Position, error) {
	saved, expired, err := s.cache.Get()
	if err != nil {
		return nil, err
	}
	if expired || saved == nil {
		return make(map[string]*Position), nil
	}
	return saved, nil
}

// Get returns the saved position for hash.
func (s *Store) Get(hash string) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.all()
	if err != nil {
		return Position{}, false
	}
	p, ok := saved[hash]
	if !ok || p == nil {
		return Position{}, false
	}
	return *p, true
}

// Set saves the position for hash.
func (s *Store) Set(hash string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.all()
	if err != nil {
		return err
	}
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now()
	}
	saved[hash] = &pos
	return s.cache.Set(saved)
}

// Clear removes the saved position for hash.
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.all()
	if err != nil {
		return err
	}
	if _, ok := saved[hash]; !ok {
		return nil
	}
	delete(saved, hash)
	return s.cache.Set(saved)
}
