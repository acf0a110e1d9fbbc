package events

import (
	"encoding/json"
	"testing"

	"github.com/pthm-cable/hunters/components"
)

func TestMultiFansOutInOrder(t *testing.T) {
	var order []string
	a := SinkFunc(func(Event) { order = append(order, "a") })
	b := SinkFunc(func(Event) { order = append(order, "b") })

	m := NewMulti(a, nil, b)
	rec := &Recorder{}
	m.Add(rec)
	m.Add(nil)

	m.Emit(Event{Kind: Died, AgentID: 4})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want [a b]", order)
	}
	if rec.Count(Died) != 1 {
		t.Errorf("recorder Count(Died) = %d, want 1", rec.Count(Died))
	}
}

func TestRecorderForAgent(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(Event{Kind: Damaged, AgentID: 1})
	rec.Emit(Event{Kind: Damaged, AgentID: 2})
	rec.Emit(Event{Kind: Died, AgentID: 1})
	rec.Emit(Event{Kind: Damaged, AgentID: 1})

	if got := len(rec.ForAgent(Damaged, 1)); got != 2 {
		t.Errorf("ForAgent(Damaged, 1) = %d events, want 2", got)
	}
	if got := rec.Count(Regenerated); got != 0 {
		t.Errorf("Count(Regenerated) = %d, want 0", got)
	}
}

func TestKindText(t *testing.T) {
	for k := Spawned; k <= ProcreationEnded; k++ {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", k, err)
		}
		var back Kind
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if back != k {
			t.Errorf("round trip of %q = %v, want %v", b, back, k)
		}
	}

	var k Kind
	if err := k.UnmarshalText([]byte("exploded")); err == nil {
		t.Error("UnmarshalText accepted an unknown kind")
	}
	if Kind(200).String() != "unknown" {
		t.Errorf("Kind(200).String() = %q, want unknown", Kind(200).String())
	}
}

func TestEventJSON(t *testing.T) {
	in := Event{
		Kind:       Born,
		Tick:       12,
		AgentID:    7,
		Type:       components.Group,
		OtherID:    3,
		Cause:      CauseCombat,
		Parents:    []uint32{2, 3},
		Generation: 4,
		Counts:     Counts{1, 9},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["kind"] != "born" || raw["type"] != "group" || raw["cause"] != "combat" {
		t.Errorf("encoded names = %v/%v/%v, want born/group/combat", raw["kind"], raw["type"], raw["cause"])
	}

	var out Event
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Kind != Born || out.Type != components.Group || out.Cause != CauseCombat || out.Generation != 4 {
		t.Errorf("decoded = %+v", out)
	}
}
