package game

import (
	"github.com/pthm-cable/hunters/systems"
	"github.com/pthm-cable/hunters/telemetry"
)

// step runs a single tick of the simulation.
func (g *Game) step() {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseClock)
	g.clock.Advance()

	g.perfCollector.StartPhase(telemetry.PhaseSpatialGrid)
	g.index.Rebuild()

	g.perfCollector.StartPhase(telemetry.PhaseDecide)
	g.updateDecisions()

	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.physics.Integrate(g.cfg.Physics.DT)

	g.perfCollector.StartPhase(telemetry.PhaseContacts)
	g.resolveContacts()

	g.perfCollector.StartPhase(telemetry.PhaseProcreation)
	g.proc.Update()

	g.perfCollector.StartPhase(telemetry.PhaseBirths)
	g.applyBirths()

	g.perfCollector.StartPhase(telemetry.PhaseCleanup)
	g.reg.Flush()
	g.econ.Flush()

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// updateDecisions perceives then decides for every live hunter in ascending
// ID order. Perception is side-effect free, so it may run on workers; the
// decisions draw from the shared RNG and stay serial.
func (g *Game) updateDecisions() {
	g.scratch = g.reg.Snapshot(g.scratch[:0])
	n := len(g.scratch)
	if cap(g.perceptions) < n {
		g.perceptions = make([]systems.Perception, n)
	}
	g.perceptions = g.perceptions[:n]

	if g.par != nil && n >= parallelThreshold {
		g.par.perceiveAll(g.scratch, g.perceptions)
	} else {
		for i, e := range g.scratch {
			g.perceptions[i] = g.percept.Perceive(e)
		}
	}

	for i, e := range g.scratch {
		if !g.reg.Alive(e) {
			continue
		}
		g.policy.Decide(e, g.perceptions[i])
	}
}

// resolveContacts feeds contact-enter pairs to combat or procreation and
// food overlaps to the economy. Pairs arrive in ascending ID order.
func (g *Game) resolveContacts() {
	contacts := g.physics.Contacts()
	for _, p := range contacts.Pairs {
		if g.combat.OnContact(p.A, p.B) == systems.ContactKin {
			g.proc.Begin(p.A, p.B)
		}
	}
	for _, fc := range contacts.Food {
		if !g.reg.Alive(fc.Hunter) {
			continue
		}
		g.econ.Consume(fc.Hunter, fc.Food)
	}
}
