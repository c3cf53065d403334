package web

import (
	"sort"
	"sync"
	"time"

	"lunarcal/internal/batch"
)

// Feed is the latest serialized calendar of one configuration file.
type Feed struct {
	Name      string
	Body      []byte
	UpdatedAt time.Time
}

// Store holds the feeds served by Server. It is safe for concurrent use:
// the scheduler writes while HTTP handlers read.
type Store struct {
	mu    sync.RWMutex
	feeds map[string]Feed
}

func NewStore() *Store {
	return &Store{feeds: map[string]Feed{}}
}

func (s *Store) Put(name string, body []byte, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[name] = Feed{Name: name, Body: body, UpdatedAt: at}
}

func (s *Store) Get(name string) (Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feeds[name]
	return f, ok
}

// List returns all feeds sorted by name.
func (s *Store) List() []Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Update publishes every successfully written file of a batch run. Failed
// files keep serving their previous version.
func (s *Store) Update(results []batch.FileResult, at time.Time) int {
	n := 0
	for _, res := range results {
		if res.Err != nil || res.Body == nil {
			continue
		}
		s.Put(res.Name, res.Body, at)
		n++
	}
	return n
}
