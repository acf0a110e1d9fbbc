// Package components defines ECS components for the simulation.
package components

// HunterType distinguishes the two competing strategies.
type HunterType uint8

const (
	Solo HunterType = iota
	Group
)

// NumHunterTypes is the number of hunter types.
const NumHunterTypes = 2

// Opposes reports whether two hunter types fight each other.
func (t HunterType) Opposes(other HunterType) bool { return t != other }

// Intent is the decision branch that produced the current steering.
type Intent uint8

const (
	IntentWander Intent = iota
	IntentFollow
	IntentForage
	IntentEngage
	IntentFlee
)

// HunterStats is the immutable stat block of a hunter.
// Offspring receive a derived copy; templates are never modified in place.
type HunterStats struct {
	MaxHealth              float64 `json:"max_health"`
	LowHealthThreshold     float64 `json:"low_health_threshold"`
	RegenAmount            float64 `json:"regen_amount"`
	Acceleration           float64 `json:"acceleration"`
	MaxSpeed               float64 `json:"max_speed"`
	Attack                 float64 `json:"attack"`
	Defense                float64 `json:"defense"`
	SightDistance          float64 `json:"sight_distance"`
	SizeMultiplier         float64 `json:"size_multiplier"`
	ProcreationProbability float64 `json:"procreation_probability"`
	ProcreationTime        float64 `json:"procreation_time"`
}

// WithAttack returns a copy of s with a different attack value.
func (s HunterStats) WithAttack(attack float64) HunterStats {
	s.Attack = attack
	return s
}
