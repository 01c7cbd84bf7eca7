package transferstate

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	state := New()

	if !state.IsEmpty() {
		t.Fatal("New state not empty")
	}
	if state.HasKey("G./api/x") {
		t.Fatal("Missing key reported present")
	}
	if value := state.Get("G./api/x", json.RawMessage(`"default"`)); string(value) != `"default"` {
		t.Fatalf("Default is %s", value)
	}

	state.Set("G./api/x", json.RawMessage(`{"a":1}`))
	if !state.HasKey("G./api/x") || state.IsEmpty() {
		t.Fatal("Stored key not reported present")
	}
	if value := state.Get("G./api/x", nil); string(value) != `{"a":1}` {
		t.Fatalf("Value is %s", value)
	}

	state.Remove("G./api/x")
	if state.HasKey("G./api/x") {
		t.Fatal("Removed key still present")
	}
	// removing again is fine
	state.Remove("G./api/x")
}

func TestStateSerialization(t *testing.T) {
	state := New()
	state.Set("G./api/x", json.RawMessage(`{"a":1}`))
	state.Set("H./api/x", json.RawMessage(`"value"`))

	data, err := state.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	rehydrated := New()
	if err := rehydrated.FromJSON(data); err != nil {
		t.Fatal(err)
	}
	if value := rehydrated.Get("G./api/x", nil); string(value) != `{"a":1}` {
		t.Fatalf("Rehydrated value is %s", value)
	}
	if value := rehydrated.Get("H./api/x", nil); string(value) != `"value"` {
		t.Fatalf("Rehydrated value is %s", value)
	}
}

func TestStateOnSerialize(t *testing.T) {
	state := New()
	state.RegisterOnSerialize("lazy", func() any {
		return map[string]int{"n": 42}
	})

	data, err := state.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	rehydrated := New()
	if err := rehydrated.FromJSON(data); err != nil {
		t.Fatal(err)
	}
	if value := rehydrated.Get("lazy", nil); string(value) != `{"n":42}` {
		t.Fatalf("Serialized callback value is %s", value)
	}
}

func TestStateToJSONEscapesScriptBreakers(t *testing.T) {
	state := New()
	state.RegisterOnSerialize("html", func() any {
		return "</script>"
	})

	data, err := state.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("</script>")) {
		t.Fatalf("Unescaped script close tag in %s", data)
	}
}

func TestLayeredReadsThroughAndCopies(t *testing.T) {
	local, shared := New(), New()
	store := Layered(local, shared)

	shared.Set("G./api/x", json.RawMessage(`{"warm":true}`))

	if !store.HasKey("G./api/x") {
		t.Fatal("Warm entry not visible through layered store")
	}
	// the warm hit must now be part of the render-local state,
	// so it ends up in the page embed
	if value := local.Get("G./api/x", nil); string(value) != `{"warm":true}` {
		t.Fatalf("Local copy is %s", value)
	}
	if value := store.Get("G./api/x", nil); string(value) != `{"warm":true}` {
		t.Fatalf("Layered value is %s", value)
	}
}

func TestLayeredWritesAndRemovesBoth(t *testing.T) {
	local, shared := New(), New()
	store := Layered(local, shared)

	store.Set("G./api/x", json.RawMessage(`{"a":1}`))
	if !local.HasKey("G./api/x") || !shared.HasKey("G./api/x") {
		t.Fatal("Write did not reach both layers")
	}

	store.Remove("G./api/x")
	if local.HasKey("G./api/x") || shared.HasKey("G./api/x") {
		t.Fatal("Remove did not reach both layers")
	}
}
