package procurement

import (
	"sync"
)

// Observer is notified synchronously after a request changes.
type Observer func(Request)

// Store owns the in-memory set of requests for a session. All reads return
// deep copies; all writes happen under the write lock.
type Store struct {
	mu        sync.RWMutex
	requests  []Request
	revision  int64
	observers map[int]Observer
	nextObs   int
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{observers: make(map[int]Observer)}
}

// Load replaces the whole collection, preserving order.
func (s *Store) Load(requests []Request) {
	s.mu.Lock()
	s.requests = make([]Request, len(requests))
	for i, r := range requests {
		s.requests[i] = cloneRequest(r)
		if s.requests[i].Version == 0 {
			s.requests[i].Version = 1
		}
	}
	s.revision++
	observers := s.snapshotObservers()
	var loaded []Request
	if len(observers) > 0 {
		loaded = make([]Request, len(s.requests))
		for i, r := range s.requests {
			loaded[i] = cloneRequest(r)
		}
	}
	s.mu.Unlock()
	for _, r := range loaded {
		notifyAll(observers, r)
	}
}

// List returns every request in insertion order.
func (s *Store) List() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, len(s.requests))
	for i, r := range s.requests {
		out[i] = cloneRequest(r)
	}
	return out
}

// Len returns the number of stored requests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

// GetByID returns the request with the given id. Absence is reported through
// the boolean.
func (s *Store) GetByID(id string) (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Request{}, false
	}
	return cloneRequest(s.requests[idx]), true
}

// Revision is bumped on every change to the collection.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Insert appends a request. An existing request with the same id is replaced
// in place.
func (s *Store) Insert(req Request) Request {
	s.mu.Lock()
	stored := cloneRequest(req)
	if stored.Version == 0 {
		stored.Version = 1
	}
	if idx := s.indexOf(stored.ID); idx >= 0 {
		stored.Version = s.requests[idx].Version + 1
		s.requests[idx] = stored
	} else {
		s.requests = append(s.requests, stored)
	}
	s.revision++
	observers := s.snapshotObservers()
	out := cloneRequest(stored)
	s.mu.Unlock()
	notifyAll(observers, out)
	return cloneRequest(out)
}

// Mutate applies fn to a copy of the request and stores the result at the same
// index. fn may reject the change by returning an error, in which case the
// store is left untouched.
func (s *Store) Mutate(id string, fn func(*Request) error) (Request, error) {
	return s.mutate(id, -1, fn)
}

// CompareAndSwap is Mutate guarded by the caller's expected version.
func (s *Store) CompareAndSwap(id string, expectedVersion int64, fn func(*Request) error) (Request, error) {
	return s.mutate(id, expectedVersion, fn)
}

func (s *Store) mutate(id string, expectedVersion int64, fn func(*Request) error) (Request, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Request{}, ErrNotFound
	}
	current := s.requests[idx]
	if expectedVersion >= 0 && current.Version != expectedVersion {
		s.mu.Unlock()
		return Request{}, ErrVersionConflict
	}
	next := cloneRequest(current)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return Request{}, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	s.requests[idx] = next
	s.revision++
	observers := s.snapshotObservers()
	out := cloneRequest(next)
	s.mu.Unlock()
	notifyAll(observers, out)
	return cloneRequest(out), nil
}

// Subscribe registers an observer and returns a function removing it.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.requests {
		if s.requests[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotObservers() []Observer {
	if len(s.observers) == 0 {
		return nil
	}
	out := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		out = append(out, o)
	}
	return out
}

func notifyAll(observers []Observer, req Request) {
	for _, o := range observers {
		o(req)
	}
}
