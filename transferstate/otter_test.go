package transferstate

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOtterStore(t *testing.T) {
	store, err := NewOtter(100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if store.HasKey("G./api/x") {
		t.Fatal("Missing key reported present")
	}
	if value := store.Get("G./api/x", json.RawMessage(`"default"`)); string(value) != `"default"` {
		t.Fatalf("Default is %s", value)
	}

	store.Set("G./api/x", json.RawMessage(`{"a":1}`))
	// otter may process writes asynchronously; wait briefly
	time.Sleep(50 * time.Millisecond)

	if !store.HasKey("G./api/x") {
		t.Fatal("Stored key not reported present")
	}
	if value := store.Get("G./api/x", nil); string(value) != `{"a":1}` {
		t.Fatalf("Value is %s", value)
	}

	store.Remove("G./api/x")
	if store.HasKey("G./api/x") {
		t.Fatal("Removed key still present")
	}
}

func TestOtterStoreExpiry(t *testing.T) {
	store, err := NewOtter(100, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	store.Set("G./api/x", json.RawMessage(`{"a":1}`))
	time.Sleep(200 * time.Millisecond)

	if store.HasKey("G./api/x") {
		t.Fatal("Expired key still present")
	}
}
