package transferstate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
)

// Otter is a shared in-memory warm store backed by a W-TinyLFU cache.
// Use it to replay recorded responses across renders in one process.
type Otter struct {
	cache *otter.Cache[string, json.RawMessage]
}

// NewOtter creates a warm store with the given max entry count and TTL.
func NewOtter(maxSize int, ttl time.Duration) (*Otter, error) {
	c, err := otter.New[string, json.RawMessage](&otter.Options[string, json.RawMessage]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, json.RawMessage](ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("create warm store: %w", err)
	}
	return &Otter{cache: c}, nil
}

func (o *Otter) HasKey(key string) bool {
	_, ok := o.cache.GetIfPresent(key)
	return ok
}

func (o *Otter) Get(key string, def json.RawMessage) json.RawMessage {
	value, ok := o.cache.GetIfPresent(key)
	if !ok {
		return def
	}
	return value
}

func (o *Otter) Set(key string, value json.RawMessage) {
	o.cache.Set(key, value)
}

func (o *Otter) Remove(key string) {
	o.cache.Invalidate(key)
}
