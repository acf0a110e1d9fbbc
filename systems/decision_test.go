package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

func TestDecisionBranches(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		setup  func(h *harness) ecs.Entity
		want   components.Intent
	}{
		{
			name: "lone hunter wanders",
			setup: func(h *harness) ecs.Entity {
				return h.spawn(components.Solo, 100, 100, 0)
			},
			want: components.IntentWander,
		},
		{
			name: "group follows a packmate",
			setup: func(h *harness) ecs.Entity {
				self := h.spawn(components.Group, 100, 100, 0)
				h.spawn(components.Group, 104, 100, 0)
				return self
			},
			want: components.IntentFollow,
		},
		{
			name: "hungry hunter forages",
			setup: func(h *harness) ecs.Entity {
				h.econ.SpawnFoodAt(r2.Vec{X: 105, Y: 100})
				return h.spawn(components.Solo, 100, 100, 30)
			},
			want: components.IntentForage,
		},
		{
			name: "combat beats foraging",
			setup: func(h *harness) ecs.Entity {
				h.econ.SpawnFoodAt(r2.Vec{X: 105, Y: 100})
				self := h.spawn(components.Solo, 100, 100, 30)
				h.spawn(components.Group, 95, 100, 0)
				return self
			},
			want: components.IntentEngage,
		},
		{
			name: "wounded solo flees",
			setup: func(h *harness) ecs.Entity {
				self := h.spawn(components.Solo, 100, 100, h.cfg.Templates.Solo.LowHealthThreshold-1)
				h.spawn(components.Group, 105, 100, 0)
				return self
			},
			want: components.IntentFlee,
		},
		{
			name: "outnumbered group flees",
			setup: func(h *harness) ecs.Entity {
				self := h.spawn(components.Group, 100, 100, 0)
				h.spawn(components.Group, 98, 100, 0)
				h.spawn(components.Solo, 105, 100, 0)
				return self
			},
			want: components.IntentFlee,
		},
		{
			name: "pack with enough allies engages",
			setup: func(h *harness) ecs.Entity {
				self := h.spawn(components.Group, 100, 100, 0)
				for i := 0; i < h.cfg.Decision.GroupMinAllies; i++ {
					h.spawn(components.Group, 98, 98+float64(i), 0)
				}
				h.spawn(components.Solo, 105, 100, 0)
				return self
			},
			want: components.IntentEngage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.mutate)
			self := tt.setup(h)
			got := h.policy.Decide(self, h.perceive(self))
			if got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWoundedGroupFleesDespiteAllies(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Templates.Group.MaxHealth = 50
		c.Templates.Group.LowHealthThreshold = 15
	})
	self := h.spawn(components.Group, 100, 100, 10)
	h.spawn(components.Group, 98, 100, 0)
	h.spawn(components.Group, 98, 102, 0)
	h.spawn(components.Solo, 106, 100, 0)

	p := h.perceive(self)
	if p.Allies != 2 {
		t.Fatalf("Allies = %d, want 2", p.Allies)
	}
	dec := h.policy.Evaluate(self, p)
	if dec.Intent != components.IntentFlee {
		t.Fatalf("Intent = %v, want flee", dec.Intent)
	}
	if dec.Target.X >= 0 {
		t.Errorf("flee target %v points toward the enemy", dec.Target)
	}
	if dec.SpeedMul != 1 {
		t.Errorf("SpeedMul = %v, want 1", dec.SpeedMul)
	}
	if dec.Impulse {
		t.Error("fleeing hunter requested an impulse")
	}
	if !dec.InCombat {
		t.Error("fleeing hunter not marked in combat")
	}
}

func TestDecideWritesUnitHeading(t *testing.T) {
	h := newHarness(t, nil)
	self := h.spawn(components.Solo, 100, 100, 0)
	enemy := h.spawn(components.Group, 100, 110, 0)

	for i := 0; i < 200; i++ {
		h.policy.Decide(self, h.perceive(self))
	}
	s := h.reg.Steering(self)
	if n := r2.Norm(s.Heading); math.Abs(n-1) > 1e-9 {
		t.Errorf("|heading| = %v, want 1", n)
	}
	if s.Heading.Y <= 0.5 {
		t.Errorf("heading %v did not turn toward the enemy", s.Heading)
	}
	if s.TargetID != h.id(enemy) || !s.Impulse {
		t.Errorf("steering target = %d impulse %v, want %d true", s.TargetID, s.Impulse, h.id(enemy))
	}
	if !h.reg.Vitals(self).InCombat {
		t.Error("InCombat not set while engaging")
	}
}

func TestDecideClearsCombatFlag(t *testing.T) {
	h := newHarness(t, nil)
	self := h.spawn(components.Solo, 100, 100, 0)
	h.reg.Vitals(self).InCombat = true

	h.policy.Decide(self, h.perceive(self))
	if h.reg.Vitals(self).InCombat {
		t.Error("InCombat still set with no opponent in sight")
	}
}

func TestDecideBrakesBeforeWalls(t *testing.T) {
	h := newHarness(t, nil)
	self := h.spawn(components.Solo, 3, 100, 0)
	h.reg.Steering(self).Heading = r2.Vec{X: -1}

	h.policy.Decide(self, h.perceive(self))
	s := h.reg.Steering(self)
	if !s.Brake {
		t.Error("Brake not set facing the arena wall")
	}
	if s.Heading.X <= 0 {
		t.Errorf("heading %v still points into the wall", s.Heading)
	}
}
