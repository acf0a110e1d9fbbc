package systems

import (
	"math"
	"math/rand"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/hunters/clock"
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

// pairKey is an unordered hunter pair, lower ID first.
type pairKey struct{ lo, hi uint32 }

func makePairKey(a, b uint32) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

type sessionState uint8

const (
	sessionNegotiating sessionState = iota
	sessionCooling
)

// session is one negotiation between two same-type hunters. The lower ID is
// the initiator: it owns the deadline, the probability roll and the birth.
type session struct {
	key       pairKey
	initiator ecs.Entity
	partner   ecs.Entity
	deadline  float64
	state     sessionState
	cooldown  clock.TimerID
}

// ProcreationProtocol runs timed negotiations between same-type hunters in
// contact. Every exit path restores CanProcreate on the survivors, and a
// successful negotiation produces exactly one spawn request.
type ProcreationProtocol struct {
	reg       *PopulationRegistry
	rng       *rand.Rand
	cfg       config.ProcreationConfig
	templates [components.NumHunterTypes]components.HunterStats
	spawn     func(SpawnRequest)

	sessions map[pairKey]*session
	byAgent  map[uint32]pairKey
	keys     []pairKey // scratch for Update
}

// NewProcreationProtocol creates the protocol. spawn receives offspring
// requests; callers normally defer them until the end of the tick.
func NewProcreationProtocol(reg *PopulationRegistry, rng *rand.Rand, cfg config.ProcreationConfig, templates [components.NumHunterTypes]components.HunterStats, spawn func(SpawnRequest)) *ProcreationProtocol {
	p := &ProcreationProtocol{
		reg:       reg,
		rng:       rng,
		cfg:       cfg,
		templates: templates,
		spawn:     spawn,
		sessions:  make(map[pairKey]*session),
		byAgent:   make(map[uint32]pairKey),
	}
	reg.OnDeath(p.partnerDied)
	return p
}

// Active returns the number of open sessions, including cooling ones.
func (p *ProcreationProtocol) Active() int {
	return len(p.sessions)
}

// InSession reports whether the hunter is negotiating or cooling down.
func (p *ProcreationProtocol) InSession(id uint32) bool {
	_, ok := p.byAgent[id]
	return ok
}

// KinAllowed applies the configured kin policy to a pair.
func (p *ProcreationProtocol) KinAllowed(a, b *components.Hunter) bool {
	switch p.cfg.KinPolicy {
	case config.KinPolicyParents:
		return !a.IsParentOf(b) && !b.IsParentOf(a)
	case config.KinPolicySiblings:
		return !a.IsParentOf(b) && !b.IsParentOf(a) && !a.SharesParent(b)
	default:
		return true
	}
}

// Begin starts a negotiation between two hunters in contact. It returns false
// when the pair is not eligible: different types, either side unable to
// procreate, or excluded by the kin policy.
func (p *ProcreationProtocol) Begin(a, b ecs.Entity) bool {
	if a == b || !p.reg.Alive(a) || !p.reg.Alive(b) {
		return false
	}
	ha, hb := p.reg.Hunter(a), p.reg.Hunter(b)
	if ha.Type.Opposes(hb.Type) {
		return false
	}
	pa, pb := p.reg.Procreation(a), p.reg.Procreation(b)
	if !pa.CanProcreate || !pb.CanProcreate {
		return false
	}
	if !p.KinAllowed(ha, hb) {
		return false
	}

	initiator, partner := a, b
	if hb.ID < ha.ID {
		initiator, partner = b, a
	}
	hi := p.reg.Hunter(initiator)
	key := makePairKey(ha.ID, hb.ID)
	now := p.reg.Clock().Now()

	pa.CanProcreate, pa.PartnerID = false, hb.ID
	pb.CanProcreate, pb.PartnerID = false, ha.ID

	s := &session{
		key:       key,
		initiator: initiator,
		partner:   partner,
		deadline:  now + hi.Stats.ProcreationTime,
	}
	p.sessions[key] = s
	p.byAgent[key.lo] = key
	p.byAgent[key.hi] = key

	p.emit(events.ProcreationStarted, s, false)
	return true
}

// Update advances every negotiating session by one tick: drops pairs that
// drifted out of sight and rolls those past their deadline.
func (p *ProcreationProtocol) Update() {
	p.keys = p.keys[:0]
	for k, s := range p.sessions {
		if s.state == sessionNegotiating {
			p.keys = append(p.keys, k)
		}
	}
	sort.Slice(p.keys, func(i, j int) bool {
		if p.keys[i].lo != p.keys[j].lo {
			return p.keys[i].lo < p.keys[j].lo
		}
		return p.keys[i].hi < p.keys[j].hi
	})

	now := p.reg.Clock().Now()
	for _, k := range p.keys {
		s, ok := p.sessions[k]
		if !ok || s.state != sessionNegotiating {
			continue
		}
		if !p.reg.Alive(s.initiator) || !p.reg.Alive(s.partner) {
			p.end(s, false)
			continue
		}

		hi := p.reg.Hunter(s.initiator)
		sight := hi.Stats.SightDistance
		if distance(p.reg.Position(s.initiator).Vec(), p.reg.Position(s.partner).Vec()) > sight {
			p.end(s, false)
			continue
		}
		if now <= s.deadline {
			continue
		}

		if p.rng.Float64() < hi.Stats.ProcreationProbability {
			p.spawn(p.Offspring(s.initiator, s.partner))
			p.end(s, true)
			continue
		}

		s.state = sessionCooling
		s.cooldown = p.reg.Clock().After(clock.World, p.cfg.FailureCooldown, func(float64) {
			if cur, ok := p.sessions[k]; ok && cur == s {
				p.end(s, false)
			}
		})
	}
}

// Offspring derives the spawn request for a child of a and b. The child takes
// a's type template with attack drifted from the stronger parent and capped
// relative to the template.
func (p *ProcreationProtocol) Offspring(a, b ecs.Entity) SpawnRequest {
	ha, hb := p.reg.Hunter(a), p.reg.Hunter(b)
	va, vb := p.reg.Vitals(a), p.reg.Vitals(b)
	tmpl := p.templates[ha.Type]

	noise := uniform(p.rng, p.cfg.AttackNoiseMin, p.cfg.AttackNoiseMax)
	attack := math.Min(math.Max(ha.Stats.Attack, hb.Stats.Attack)+noise, tmpl.Attack+p.cfg.AttackCapBonus)
	attack = math.Max(attack, 0)

	return SpawnRequest{
		Type:       ha.Type,
		Stats:      tmpl.WithAttack(attack),
		Pos:        midpoint(p.reg.Position(a).Vec(), p.reg.Position(b).Vec()),
		Heading:    p.reg.Steering(a).Heading,
		Health:     math.Min(math.Max(va.Health, vb.Health), tmpl.MaxHealth),
		Parents:    [2]uint32{ha.ID, hb.ID},
		HasParents: true,
		Generation: max(ha.Generation, hb.Generation) + 1,
	}
}

// partnerDied aborts the session of a hunter that died and frees the survivor.
func (p *ProcreationProtocol) partnerDied(id uint32, _ ecs.Entity) {
	k, ok := p.byAgent[id]
	if !ok {
		return
	}
	if s, ok := p.sessions[k]; ok {
		p.end(s, false)
	}
}

// end closes a session and restores CanProcreate on living members.
func (p *ProcreationProtocol) end(s *session, success bool) {
	if s.cooldown != 0 {
		p.reg.Clock().Cancel(s.cooldown)
		s.cooldown = 0
	}
	delete(p.sessions, s.key)
	delete(p.byAgent, s.key.lo)
	delete(p.byAgent, s.key.hi)

	for _, e := range [2]ecs.Entity{s.initiator, s.partner} {
		if p.reg.Alive(e) {
			pr := p.reg.Procreation(e)
			pr.CanProcreate = true
			pr.PartnerID = 0
		}
	}
	p.emit(events.ProcreationEnded, s, success)
}

func (p *ProcreationProtocol) emit(kind events.Kind, s *session, success bool) {
	clk := p.reg.Clock()
	p.reg.Sink().Emit(events.Event{
		Kind:    kind,
		Tick:    clk.Tick(),
		Time:    clk.Now(),
		AgentID: s.key.lo,
		OtherID: s.key.hi,
		Type:    p.reg.Hunter(s.initiator).Type,
		Success: success,
	})
}
