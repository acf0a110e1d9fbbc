package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
)

// Index holds the per-tick spatial grids for hunters and food.
type Index struct {
	reg     *PopulationRegistry
	econ    *ResourceEconomy
	Hunters *SpatialGrid
	Food    *SpatialGrid

	scratch []ecs.Entity
}

// NewIndex creates grids covering the arena.
func NewIndex(reg *PopulationRegistry, econ *ResourceEconomy, width, height, cellSize float64) *Index {
	return &Index{
		reg:     reg,
		econ:    econ,
		Hunters: NewSpatialGrid(width, height, cellSize),
		Food:    NewSpatialGrid(width, height, cellSize),
	}
}

// Rebuild reinserts every live hunter and unconsumed food item.
func (x *Index) Rebuild() {
	x.Hunters.Clear()
	x.scratch = x.reg.Snapshot(x.scratch[:0])
	for _, e := range x.scratch {
		x.Hunters.Insert(e, x.reg.Position(e).Vec())
	}

	x.Food.Clear()
	if x.econ == nil {
		return
	}
	x.scratch = x.econ.Snapshot(x.scratch[:0])
	for _, e := range x.scratch {
		x.Food.Insert(e, x.econ.Position(e).Vec())
	}
}

// Perception is what one hunter sees this tick.
type Perception struct {
	// Closest is the most relevant hunter: the nearest opponent if any is
	// visible, otherwise the nearest ally.
	Closest    ecs.Entity
	HasClosest bool

	Enemy     ecs.Entity // nearest opposing-type hunter
	HasEnemy  bool
	EnemyDist float64

	Ally     ecs.Entity // nearest same-type hunter
	HasAlly  bool
	AllyDist float64

	Allies  int
	Enemies int

	Food     ecs.Entity // nearest unconsumed food, only looked up when hungry
	HasFood  bool
	FoodDist float64
}

// PerceptionSystem answers "what does this hunter see" against the index.
type PerceptionSystem struct {
	reg            *PopulationRegistry
	econ           *ResourceEconomy
	index          *Index
	forageFraction float64

	buf []Neighbor
}

// NewPerceptionSystem creates a perception system. Food is only searched for
// hunters whose health fraction is below forageFraction.
func NewPerceptionSystem(reg *PopulationRegistry, econ *ResourceEconomy, index *Index, forageFraction float64) *PerceptionSystem {
	return &PerceptionSystem{
		reg:            reg,
		econ:           econ,
		index:          index,
		forageFraction: forageFraction,
		buf:            make([]Neighbor, 0, queryBufCap),
	}
}

// Perceive returns what e sees within its sight distance. It has no side
// effects. Distance ties break on the lower hunter ID so results do not
// depend on grid insertion order.
func (s *PerceptionSystem) Perceive(e ecs.Entity) Perception {
	var p Perception
	self := s.reg.Hunter(e)
	v := s.reg.Vitals(e)
	origin := s.reg.Position(e).Vec()
	sight := self.Stats.SightDistance

	var enemyID, allyID uint32
	s.buf = s.index.Hunters.QueryRadiusInto(s.buf[:0], origin, sight, e, s.reg.PosMap())
	for _, n := range s.buf {
		if !s.reg.Alive(n.E) {
			continue
		}
		other := s.reg.Hunter(n.E)
		if self.Type.Opposes(other.Type) {
			p.Enemies++
			if !p.HasEnemy || closer(n.DistSq, other.ID, p.EnemyDist, enemyID) {
				p.Enemy, p.HasEnemy, p.EnemyDist, enemyID = n.E, true, n.DistSq, other.ID
			}
		} else {
			p.Allies++
			if !p.HasAlly || closer(n.DistSq, other.ID, p.AllyDist, allyID) {
				p.Ally, p.HasAlly, p.AllyDist, allyID = n.E, true, n.DistSq, other.ID
			}
		}
	}

	switch {
	case p.HasEnemy:
		p.Closest, p.HasClosest = p.Enemy, true
	case p.HasAlly:
		p.Closest, p.HasClosest = p.Ally, true
	}

	if s.econ != nil && v.Fraction() < s.forageFraction {
		var foodID uint32
		s.buf = s.index.Food.QueryRadiusInto(s.buf[:0], origin, sight, ecs.Entity{}, s.econ.PosMap())
		for _, n := range s.buf {
			f := s.econ.Food(n.E)
			if f.Consumed {
				continue
			}
			if !p.HasFood || closer(n.DistSq, f.ID, p.FoodDist, foodID) {
				p.Food, p.HasFood, p.FoodDist, foodID = n.E, true, n.DistSq, f.ID
			}
		}
	}

	// Distances were tracked squared while scanning.
	p.EnemyDist = sqrtOrZero(p.HasEnemy, p.EnemyDist)
	p.AllyDist = sqrtOrZero(p.HasAlly, p.AllyDist)
	p.FoodDist = sqrtOrZero(p.HasFood, p.FoodDist)
	return p
}

// closer orders candidates by distance, then by ID.
func closer(distSq float64, id uint32, bestSq float64, bestID uint32) bool {
	if distSq != bestSq {
		return distSq < bestSq
	}
	return id < bestID
}

func sqrtOrZero(ok bool, sq float64) float64 {
	if !ok {
		return 0
	}
	return math.Sqrt(sq)
}
