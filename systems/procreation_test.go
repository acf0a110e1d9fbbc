package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

func withGroupProbability(p float64) func(*config.Config) {
	return func(c *config.Config) {
		c.Templates.Group.ProcreationProbability = p
	}
}

func canProcreate(h *harness, ids ...uint32) bool {
	for _, id := range ids {
		e, ok := h.reg.Get(id)
		if !ok || !h.reg.Procreation(e).CanProcreate {
			return false
		}
	}
	return true
}

func TestProcreationSuccessSpawnsOneOffspring(t *testing.T) {
	h := newHarness(t, withGroupProbability(1))
	a := h.spawn(components.Group, 100, 100, 30)
	b := h.spawn(components.Group, 102, 100, 20)

	if !h.proc.Begin(a, b) {
		t.Fatal("Begin returned false")
	}
	if canProcreate(h, 1) || canProcreate(h, 2) {
		t.Fatal("CanProcreate still set during negotiation")
	}

	h.clk.AdvanceBy(h.cfg.Templates.Group.ProcreationTime + 0.1)
	h.proc.Update()
	h.proc.Update()

	if len(h.births) != 1 {
		t.Fatalf("births = %d, want 1", len(h.births))
	}
	req := h.births[0]
	if want := (r2.Vec{X: 101, Y: 100}); req.Pos != want {
		t.Errorf("offspring pos = %v, want %v", req.Pos, want)
	}
	if req.Parents != [2]uint32{1, 2} || !req.HasParents {
		t.Errorf("parents = %v (%v), want [1 2]", req.Parents, req.HasParents)
	}
	if req.Health != 30 {
		t.Errorf("offspring health = %v, want 30", req.Health)
	}
	if req.Generation != 1 {
		t.Errorf("generation = %d, want 1", req.Generation)
	}
	if req.Type != components.Group {
		t.Errorf("type = %v, want group", req.Type)
	}
	if !canProcreate(h, 1, 2) {
		t.Error("CanProcreate not restored after success")
	}
	if h.proc.Active() != 0 {
		t.Errorf("Active() = %d, want 0", h.proc.Active())
	}
}

func TestProcreationFailureCoolsDown(t *testing.T) {
	h := newHarness(t, withGroupProbability(0))
	a := h.spawn(components.Group, 100, 100, 0)
	b := h.spawn(components.Group, 102, 100, 0)

	h.proc.Begin(a, b)
	h.clk.AdvanceBy(h.cfg.Templates.Group.ProcreationTime + 0.1)
	h.proc.Update()

	if len(h.births) != 0 {
		t.Fatalf("births = %d, want 0", len(h.births))
	}
	if canProcreate(h, 1) || canProcreate(h, 2) {
		t.Error("CanProcreate restored before cooldown elapsed")
	}

	h.clk.AdvanceBy(h.cfg.Procreation.FailureCooldown + 0.1)
	if !canProcreate(h, 1, 2) {
		t.Error("CanProcreate not restored after cooldown")
	}
	if h.proc.Active() != 0 {
		t.Errorf("Active() = %d, want 0", h.proc.Active())
	}
}

func TestProcreationEndsOutOfSight(t *testing.T) {
	h := newHarness(t, withGroupProbability(1))
	a := h.spawn(components.Group, 100, 100, 0)
	b := h.spawn(components.Group, 102, 100, 0)

	h.proc.Begin(a, b)
	h.reg.Position(b).X = 100 + h.cfg.Templates.Group.SightDistance + 1
	h.proc.Update()

	if !canProcreate(h, 1, 2) {
		t.Error("CanProcreate not restored after losing sight")
	}
	h.clk.AdvanceBy(h.cfg.Templates.Group.ProcreationTime + 0.1)
	h.proc.Update()
	if len(h.births) != 0 {
		t.Errorf("births = %d, want 0", len(h.births))
	}
}

func TestProcreationPartnerDeathFreesSurvivor(t *testing.T) {
	h := newHarness(t, withGroupProbability(0))
	a := h.spawn(components.Group, 100, 100, 0)
	b := h.spawn(components.Group, 102, 100, 0)

	h.proc.Begin(a, b)
	h.clk.AdvanceBy(h.cfg.Templates.Group.ProcreationTime + 0.1)
	h.proc.Update() // now cooling down

	h.reg.Kill(b, events.CauseCombat, 0)
	if !canProcreate(h, 1) {
		t.Error("survivor CanProcreate not restored")
	}
	if h.proc.InSession(1) || h.proc.Active() != 0 {
		t.Error("session still open after partner death")
	}
	ended := h.rec.ForAgent(events.ProcreationEnded, 1)
	if len(ended) != 1 || ended[0].Success {
		t.Errorf("ProcreationEnded = %+v, want one failure", ended)
	}
}

func TestProcreationRejectsIneligiblePairs(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(components.Group, 100, 100, 0)
	b := h.spawn(components.Group, 101, 100, 0)
	c := h.spawn(components.Group, 102, 100, 0)
	solo := h.spawn(components.Solo, 103, 100, 0)

	if h.proc.Begin(a, solo) {
		t.Error("Begin across types returned true")
	}
	if h.proc.Begin(a, a) {
		t.Error("Begin with self returned true")
	}
	if !h.proc.Begin(a, b) {
		t.Fatal("Begin(a, b) returned false")
	}
	if h.proc.Begin(a, c) {
		t.Error("Begin with a negotiating hunter returned true")
	}
}

func TestKinPolicyParents(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Procreation.KinPolicy = config.KinPolicyParents
	})
	h.spawn(components.Group, 100, 100, 0)
	parent := h.spawn(components.Group, 101, 100, 0)
	child := h.reg.Spawn(SpawnRequest{
		Type:       components.Group,
		Stats:      Templates(h.cfg.Templates)[components.Group],
		Pos:        r2.Vec{X: 102, Y: 100},
		Parents:    [2]uint32{1, 2},
		HasParents: true,
	})

	if h.proc.Begin(parent, child) {
		t.Error("parent and child paired under kin policy")
	}
}

func TestOffspringAttackCapped(t *testing.T) {
	h := newHarness(t, nil)
	stats := Templates(h.cfg.Templates)[components.Group]
	strong := stats.WithAttack(stats.Attack + 100)

	a := h.reg.Spawn(SpawnRequest{Type: components.Group, Stats: strong, Pos: r2.Vec{X: 100, Y: 100}})
	b := h.reg.Spawn(SpawnRequest{Type: components.Group, Stats: strong, Pos: r2.Vec{X: 101, Y: 100}})

	req := h.proc.Offspring(a, b)
	if limit := stats.Attack + h.cfg.Procreation.AttackCapBonus; req.Stats.Attack > limit {
		t.Errorf("offspring attack = %v, want <= %v", req.Stats.Attack, limit)
	}
	if req.Stats.MaxHealth != stats.MaxHealth {
		t.Errorf("offspring max health = %v, want template %v", req.Stats.MaxHealth, stats.MaxHealth)
	}
}
