package components

import "gonum.org/v1/gonum/spatial/r2"

// Hunter bundles identity, lineage and the immutable stat block.
type Hunter struct {
	ID         uint32
	Type       HunterType
	Stats      HunterStats
	Parents    [2]uint32
	HasParents bool
	Generation int
	BirthTick  int32
}

// IsParentOf reports whether h is one of other's parents.
func (h *Hunter) IsParentOf(other *Hunter) bool {
	return other.HasParents && (other.Parents[0] == h.ID || other.Parents[1] == h.ID)
}

// SharesParent reports whether h and other have at least one parent in common.
func (h *Hunter) SharesParent(other *Hunter) bool {
	if !h.HasParents || !other.HasParents {
		return false
	}
	for _, a := range h.Parents {
		for _, b := range other.Parents {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Vitals tracks health and combat flags.
// Health stays within [0, MaxHealth]; Dead is terminal.
type Vitals struct {
	Health    float64
	MaxHealth float64
	Dead      bool
	InCombat  bool
	IFrame    bool
}

// Fraction returns Health/MaxHealth.
func (v *Vitals) Fraction() float64 {
	if v.MaxHealth <= 0 {
		return 0
	}
	return v.Health / v.MaxHealth
}

// Clamp pins Health into [0, MaxHealth].
func (v *Vitals) Clamp() {
	if v.Health > v.MaxHealth {
		v.Health = v.MaxHealth
	}
	if v.Health < 0 {
		v.Health = 0
	}
}

// Steering holds the current decision output handed to the movement integrator.
type Steering struct {
	Heading  r2.Vec // Smoothed, unit length
	SpeedMul float64
	TimeMul  float64
	Intent   Intent
	Impulse  bool   // Request a lunge toward TargetID
	TargetID uint32 // 0 = none
	Brake    bool   // Terrain ahead; halve velocity when fast
}

// Procreation holds the per-agent procreation gate.
type Procreation struct {
	CanProcreate bool
	PartnerID    uint32 // 0 = not negotiating
}

// Food marks a consumable resource item.
type Food struct {
	ID         uint32
	HealAmount float64
	Consumed   bool
}
