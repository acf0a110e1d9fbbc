package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/config"
)

// Terrain is a static obstacle field over the arena.
// Everything outside the arena bounds counts as solid.
type Terrain struct {
	cells    []bool
	cols     int
	rows     int
	cellSize float64
	width    float64
	height   float64
}

// NewTerrain generates obstacles from fractal simplex noise. Cells within
// ClearRadius of any spawn point and the outer ring of cells stay open.
func NewTerrain(cfg config.WorldConfig, seed int64) *Terrain {
	t := &Terrain{
		cellSize: cfg.Terrain.CellSize,
		width:    cfg.Width,
		height:   cfg.Height,
	}
	if !cfg.Terrain.Enabled || t.cellSize <= 0 {
		return t
	}

	t.cols = int(math.Ceil(cfg.Width / t.cellSize))
	t.rows = int(math.Ceil(cfg.Height / t.cellSize))
	t.cells = make([]bool, t.cols*t.rows)

	noise := opensimplex.NewNormalized(seed)
	clearSq := cfg.Terrain.ClearRadius * cfg.Terrain.ClearRadius

	for row := 1; row < t.rows-1; row++ {
		for col := 1; col < t.cols-1; col++ {
			center := r2.Vec{
				X: (float64(col) + 0.5) * t.cellSize,
				Y: (float64(row) + 0.5) * t.cellSize,
			}
			if nearAny(center, cfg.SpawnPoints, clearSq) {
				continue
			}
			v := octaveNoise(noise, center.X, center.Y, cfg.Terrain.Octaves, cfg.Terrain.Scale, cfg.Terrain.Persistence)
			t.cells[row*t.cols+col] = v > cfg.Terrain.Threshold
		}
	}
	return t
}

func nearAny(p r2.Vec, points []config.PointConfig, radiusSq float64) bool {
	for _, sp := range points {
		d := r2.Sub(p, r2.Vec{X: sp.X, Y: sp.Y})
		if r2.Dot(d, d) <= radiusSq {
			return true
		}
	}
	return false
}

// octaveNoise layers several noise frequencies, normalized to [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

// Solid reports whether p is blocked.
func (t *Terrain) Solid(p r2.Vec) bool {
	if p.X < 0 || p.Y < 0 || p.X >= t.width || p.Y >= t.height {
		return true
	}
	if t.cells == nil {
		return false
	}
	col := int(p.X / t.cellSize)
	row := int(p.Y / t.cellSize)
	if col >= t.cols || row >= t.rows {
		return true
	}
	return t.cells[row*t.cols+col]
}

// Raycast marches from origin along dir and returns the first solid point
// within maxDist.
func (t *Terrain) Raycast(origin, dir r2.Vec, maxDist float64) (r2.Vec, bool) {
	if r2.Norm(dir) < 1e-9 || maxDist <= 0 {
		return r2.Vec{}, false
	}
	dir = r2.Unit(dir)
	step := t.cellSize * 0.5
	if step <= 0 || step > 1 {
		step = 1
	}
	for d := step; d <= maxDist; d += step {
		p := r2.Add(origin, r2.Scale(d, dir))
		if t.Solid(p) {
			return p, true
		}
	}
	return r2.Vec{}, false
}

// SolidFraction returns the share of interior cells that are blocked.
func (t *Terrain) SolidFraction() float64 {
	if len(t.cells) == 0 {
		return 0
	}
	n := 0
	for _, c := range t.cells {
		if c {
			n++
		}
	}
	return float64(n) / float64(len(t.cells))
}
