// Package systems provides the simulation systems that operate on the ECS world.
package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/components"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	Delta  r2.Vec  // From query origin to the entity
	DistSq float64 // Squared distance
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid over a
// bounded arena.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	width    float64
	height   float64
	cells    [][]ecs.Entity
	count    int
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Len returns the number of inserted entities.
func (g *SpatialGrid) Len() int { return g.count }

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, p r2.Vec) {
	idx := g.cellIndex(p)
	g.cells[idx] = append(g.cells[idx], e)
	g.count++
}

// queryBufCap is the initial capacity of reusable query buffers.
const queryBufCap = 256

// QueryRadiusInto finds every entity within radius of center and appends it
// to dst. Results are never truncated, so a dense cluster cannot hide the
// nearest opponent. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, center r2.Vec, radius float64, exclude ecs.Entity, posMap *ecs.Map[components.Position]) []Neighbor {
	minCol, minRow := g.cellCoords(r2.Vec{X: center.X - radius, Y: center.Y - radius})
	maxCol, maxRow := g.cellCoords(r2.Vec{X: center.X + radius, Y: center.Y + radius})
	radiusSq := radius * radius

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				if e == exclude {
					continue
				}
				pos := posMap.Get(e)
				if pos == nil {
					continue
				}
				delta := r2.Sub(pos.Vec(), center)
				distSq := r2.Dot(delta, delta)
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, Delta: delta, DistSq: distSq})
				}
			}
		}
	}

	return dst
}

// cellCoords returns the clamped grid column and row for a position.
func (g *SpatialGrid) cellCoords(p r2.Vec) (col, row int) {
	col = int(p.X / g.cellSize)
	row = int(p.Y / g.cellSize)

	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(p r2.Vec) int {
	col, row := g.cellCoords(p)
	return row*g.cols + col
}
