package components

import "math"

// Body holds physical properties of an entity.
type Body struct {
	Radius   float64
	Mass     float64
	Grounded bool // Impulses are only realized while grounded
}

// Resize recomputes mass and radius from the current health.
// Mass tracks health so wounded hunters shrink and lighten.
func (b *Body) Resize(health, sizeMultiplier, minRadius float64) {
	b.Mass = health * sizeMultiplier
	b.Radius = math.Max(minRadius, b.Mass*0.5)
}
