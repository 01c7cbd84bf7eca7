package transferstate

import "encoding/json"

// Layered composes a per-render local store with a shared warm store.
// Reads check local first and fall back to shared, copying warm hits
// into local so they end up in the serialized render state. Writes
// and removals apply to both layers.
func Layered(local, shared Store) Store {
	return layered{local: local, shared: shared}
}

type layered struct {
	local  Store
	shared Store
}

func (l layered) HasKey(key string) bool {
	if l.local.HasKey(key) {
		return true
	}
	if value := l.shared.Get(key, nil); value != nil {
		l.local.Set(key, value)
		return true
	}
	return false
}

func (l layered) Get(key string, def json.RawMessage) json.RawMessage {
	if l.local.HasKey(key) {
		return l.local.Get(key, def)
	}
	return l.shared.Get(key, def)
}

func (l layered) Set(key string, value json.RawMessage) {
	l.local.Set(key, value)
	l.shared.Set(key, value)
}

func (l layered) Remove(key string) {
	l.local.Remove(key)
	l.shared.Remove(key)
}
