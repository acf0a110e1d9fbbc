package systems

import (
	"testing"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

func TestContactDamagesBothSides(t *testing.T) {
	h := newHarness(t, nil)
	solo := h.spawn(components.Solo, 100, 100, 0)
	group := h.spawn(components.Group, 101, 100, 0)

	if kind := h.combat.OnContact(solo, group); kind != ContactFight {
		t.Fatalf("OnContact = %v, want ContactFight", kind)
	}

	soloT, groupT := h.cfg.Templates.Solo, h.cfg.Templates.Group
	if got, want := h.health(solo), soloT.MaxHealth-groupT.Attack; got != want {
		t.Errorf("solo health = %v, want %v", got, want)
	}
	if got, want := h.health(group), groupT.MaxHealth-soloT.Attack; got != want {
		t.Errorf("group health = %v, want %v", got, want)
	}
	if !h.reg.Vitals(solo).IFrame || !h.reg.Vitals(group).IFrame {
		t.Error("immunity window not opened on both sides")
	}
}

func TestImmunityWindowBlocksRepeatHits(t *testing.T) {
	h := newHarness(t, nil)
	solo := h.spawn(components.Solo, 100, 100, 0)
	group := h.spawn(components.Group, 101, 100, 0)

	h.combat.OnContact(solo, group)
	after := h.health(group)
	h.combat.OnContact(solo, group)
	if got := h.health(group); got != after {
		t.Errorf("health during immunity = %v, want %v", got, after)
	}

	h.clk.AdvanceBy(h.cfg.Combat.IFrameDuration + 0.01)
	if h.reg.Vitals(group).IFrame {
		t.Fatal("immunity window still open after its duration")
	}
	h.combat.OnContact(solo, group)
	if got, want := h.health(group), after-h.cfg.Templates.Solo.Attack; got != want {
		t.Errorf("health after immunity = %v, want %v", got, want)
	}
}

func TestSameTypeContactIsKin(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(components.Group, 100, 100, 0)
	b := h.spawn(components.Group, 101, 100, 0)

	if kind := h.combat.OnContact(a, b); kind != ContactKin {
		t.Errorf("OnContact = %v, want ContactKin", kind)
	}
	if h.rec.Count(events.Damaged) != 0 {
		t.Error("same-type contact dealt damage")
	}
}

func TestLethalHitRewardsKiller(t *testing.T) {
	h := newHarness(t, nil)
	solo := h.spawn(components.Solo, 100, 100, 60)
	group := h.spawn(components.Group, 101, 100, 5)
	groupID := h.id(group)

	h.combat.OnContact(solo, group)

	if h.reg.Alive(group) {
		t.Fatal("group hunter survived a lethal hit")
	}
	if got := len(h.rec.ForAgent(events.Died, groupID)); got != 1 {
		t.Errorf("Died events = %d, want 1", got)
	}
	died := h.rec.ForAgent(events.Died, groupID)[0]
	if died.Cause != events.CauseCombat || died.OtherID != h.id(solo) {
		t.Errorf("Died = cause %v killer %d, want combat by %d", died.Cause, died.OtherID, h.id(solo))
	}

	// Both blows land: kill reward first, then the dying hunter's hit.
	want := 60 + h.cfg.Combat.KillHeal - h.cfg.Templates.Group.Attack
	if got := h.health(solo); got != want {
		t.Errorf("killer health = %v, want %v", got, want)
	}
}

func TestTakeDamageOnDeadIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	e := h.spawn(components.Solo, 100, 100, 0)
	h.reg.Kill(e, events.CauseCombat, 0)

	res := h.combat.TakeDamage(e, 10, DamageOpts{IgnoreIFrame: true})
	if res.Applied || res.Killed {
		t.Errorf("TakeDamage on dead = %+v, want zero result", res)
	}
	if got := h.rec.Count(events.Died); got != 1 {
		t.Errorf("Died events = %d, want 1", got)
	}
}

func TestDecayIgnoresImmunity(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Environment.DecayAmount = 5
	})
	e := h.spawn(components.Group, 100, 100, 3)
	h.reg.Vitals(e).IFrame = true

	if killed := h.econ.Decay(); killed != 1 {
		t.Errorf("Decay() killed = %d, want 1", killed)
	}
	died := h.rec.ForAgent(events.Died, h.id(e))
	if len(died) != 1 {
		t.Fatalf("Died events = %d, want 1", len(died))
	}
	if died[0].Cause != events.CauseDecay {
		t.Errorf("cause = %v, want decay", died[0].Cause)
	}
}

func TestDecayDoesNotOpenImmunity(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Environment.DecayAmount = 2
	})
	e := h.spawn(components.Solo, 100, 100, 0)

	h.econ.Decay()
	if h.reg.Vitals(e).IFrame {
		t.Error("decay opened an immunity window")
	}
	if got, want := h.health(e), h.cfg.Templates.Solo.MaxHealth-2; got != want {
		t.Errorf("health = %v, want %v", got, want)
	}
}

func TestHealthNeverNegative(t *testing.T) {
	h := newHarness(t, nil)
	e := h.spawn(components.Solo, 100, 100, 0)

	h.combat.TakeDamage(e, 1e6, DamageOpts{IgnoreIFrame: true})
	if got := h.health(e); got != 0 {
		t.Errorf("health = %v, want 0", got)
	}
}
