// Package events defines the simulation event stream and its sinks.
package events

import (
	"fmt"

	"github.com/pthm-cable/hunters/components"
)

// Kind identifies an event.
type Kind uint8

const (
	Spawned Kind = iota
	Born
	Damaged
	Died
	Regenerated
	FoodSpawned
	FoodConsumed
	PopulationChanged
	ProcreationStarted
	ProcreationEnded
)

var kindNames = [...]string{
	"spawned",
	"born",
	"damaged",
	"died",
	"regenerated",
	"food_spawned",
	"food_consumed",
	"population_changed",
	"procreation_started",
	"procreation_ended",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

// Cause explains how a Died or Damaged event came about.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseCombat
	CauseDecay
)

func (c Cause) String() string {
	switch c {
	case CauseCombat:
		return "combat"
	case CauseDecay:
		return "decay"
	default:
		return "none"
	}
}

// MarshalText encodes the cause by name.
func (c Cause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a cause name.
func (c *Cause) UnmarshalText(b []byte) error {
	switch string(b) {
	case "combat":
		*c = CauseCombat
	case "decay":
		*c = CauseDecay
	case "none", "":
		*c = CauseNone
	default:
		return fmt.Errorf("unknown cause %q", b)
	}
	return nil
}

// Counts holds live agents per hunter type, indexed by HunterType.
type Counts [components.NumHunterTypes]int

// Event is a single occurrence in the simulation.
// Optional fields are zero when they do not apply to the kind.
type Event struct {
	Kind     Kind                  `json:"kind"`
	Tick     int32                 `json:"tick"`
	Time     float64               `json:"time"`
	AgentID  uint32                `json:"agent_id,omitempty"`
	Type     components.HunterType `json:"type"`
	OtherID  uint32                `json:"other_id,omitempty"` // attacker, partner, second parent
	Amount   float64               `json:"amount,omitempty"`   // damage, heal or regen amount
	Health   float64               `json:"health,omitempty"`   // health after the event
	Cause    Cause                 `json:"cause,omitempty"`
	Success  bool                  `json:"success,omitempty"` // procreation outcome
	X        float64               `json:"x,omitempty"`
	Y        float64               `json:"y,omitempty"`
	Counts   Counts                `json:"counts"`
	FoodLive int                   `json:"food_live,omitempty"`

	// Spawned and Born only.
	Parents    []uint32 `json:"parents,omitempty"`
	Generation int      `json:"generation,omitempty"`
}

// Sink receives simulation events. Emit is called on the simulation goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans events out to several sinks in order.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add appends a sink.
func (m *Multi) Add(s Sink) {
	if s != nil {
		m.sinks = append(m.sinks, s)
	}
}

// Emit forwards e to every sink.
func (m *Multi) Emit(e Event) {
	for _, s := range m.sinks {
		s.Emit(e)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	Events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// ForAgent returns the recorded events of kind k for one agent.
func (r *Recorder) ForAgent(k Kind, id uint32) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == k && e.AgentID == id {
			out = append(out, e)
		}
	}
	return out
}
