// Package transferstate holds the key/value state recorded during a
// server-side render, for embedding into the rendered page and
// rehydration on the client.
package transferstate

import (
	"encoding/json"
	"sync"
)

// Store is a key/value store for response snapshots recorded during a
// render. Keys are opaque strings; values are raw JSON. A missing key
// is never an error.
//
// Implementations must be thread-safe!
type Store interface {
	// HasKey reports whether a value exists for the given key.
	HasKey(key string) bool
	// Get returns the value for the given key, or def if not present.
	Get(key string, def json.RawMessage) json.RawMessage
	// Set stores the value under the given key.
	Set(key string, value json.RawMessage)
	// Remove deletes the value for the given key, if any.
	Remove(key string)
}

// State is an in-memory Store scoped to a single render. Its contents
// serialize to JSON with ToJSON for embedding into the page, and load
// back with FromJSON on the other side.
type State struct {
	mutex       *sync.RWMutex
	store       map[string]json.RawMessage
	onSerialize map[string]func() any
}

func New() *State {
	return &State{
		mutex:       &sync.RWMutex{},
		store:       make(map[string]json.RawMessage),
		onSerialize: make(map[string]func() any),
	}
}

func (s *State) HasKey(key string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.store[key]
	return ok
}

func (s *State) Get(key string, def json.RawMessage) json.RawMessage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, ok := s.store[key]
	if !ok {
		return def
	}
	return value
}

func (s *State) Set(key string, value json.RawMessage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.store[key] = value
}

func (s *State) Remove(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.store, key)
}

// IsEmpty reports whether nothing has been recorded.
func (s *State) IsEmpty() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.store) == 0
}

// RegisterOnSerialize registers a callback that supplies the value
// for key at serialization time. The callback runs during ToJSON;
// a value that cannot be marshaled is left out.
func (s *State) RegisterOnSerialize(key string, cb func() any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onSerialize[key] = cb
}

// ToJSON serializes the state for embedding into the rendered page.
// Registered on-serialize callbacks are invoked first and their
// values stored. encoding/json escapes <, > and & by default, so the
// output is safe to inline in a script tag.
func (s *State) ToJSON() ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key, cb := range s.onSerialize {
		if raw, err := json.Marshal(cb()); err == nil {
			s.store[key] = raw
		}
	}
	return json.Marshal(s.store)
}

// FromJSON replaces the state contents with previously serialized
// output of ToJSON.
func (s *State) FromJSON(data []byte) error {
	var store map[string]json.RawMessage
	if err := json.Unmarshal(data, &store); err != nil {
		return err
	}
	if store == nil {
		store = make(map[string]json.RawMessage)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.store = store
	return nil
}
