package export

import (
	"sync"
)

// Reporter receives human-readable export problems for later display to the
// user. The orchestrator never touches a presentation surface directly.
type Reporter interface {
	Report(playlist string, err error)
}

type Entry struct {
	Playlist string
	Err      error
}

// Sink is an append-only in-memory Reporter. Entries accumulate for the
// lifetime of one export invocation and are surfaced after the run completes.
type Sink struct {
	mux     sync.Mutex
	entries []Entry
}

func NewSink() *Sink {
	return &Sink{
		mux:     sync.Mutex{},
		entries: nil,
	}
}

func (s *Sink) Report(playlist string, err error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.entries = append(s.entries, Entry{Playlist: playlist, Err: err})
}

func (s *Sink) Entries() []Entry {
	s.mux.Lock()
	defer s.mux.Unlock()

	return append([]Entry(nil), s.entries...)
}
