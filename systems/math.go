package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

// unitOr returns the unit vector of v, or fallback when v has no length.
func unitOr(v, fallback r2.Vec) r2.Vec {
	if r2.Norm(v) < 1e-9 {
		return fallback
	}
	return r2.Unit(v)
}

// lerpVec interpolates from a to b by t.
func lerpVec(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// addNoise perturbs each component of v by a uniform draw in [-n, n].
func addNoise(rng *rand.Rand, v r2.Vec, n float64) r2.Vec {
	if n <= 0 {
		return v
	}
	return r2.Vec{
		X: v.X + (rng.Float64()*2-1)*n,
		Y: v.Y + (rng.Float64()*2-1)*n,
	}
}

// RandInDisc returns a uniform point in a disc of the given radius around c.
func RandInDisc(rng *rand.Rand, c r2.Vec, radius float64) r2.Vec {
	r := radius * math.Sqrt(rng.Float64())
	a := rng.Float64() * 2 * math.Pi
	return r2.Vec{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
}

// RandHeading returns a random unit vector.
func RandHeading(rng *rand.Rand) r2.Vec {
	a := rng.Float64() * 2 * math.Pi
	return r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
}

// uniform returns a draw in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// midpoint returns the point halfway between a and b.
func midpoint(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}

// distance returns the Euclidean distance between two points.
func distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}
