// Package population provides the agent arena that stores one row of
// parallel arrays per simulated person, indexed by a permanent UID.
package population

import (
	"fmt"
	"log"
)

// A UID is the permanent identity of one agent. UIDs are assigned
// monotonically and never reused, even after the agent dies.
type UID int

// NilUID marks an unset UID reference, e.g. an agent with no parent.
const NilUID UID = -1

// UIDs is a list of agent identities.
type UIDs []UID

// Contains reports whether uid is present in the list.
func (u UIDs) Contains(uid UID) bool {
	for _, x := range u {
		if x == uid {
			return true
		}
	}
	return false
}

// A GrowableState is a per-UID array owned by a module. The arena grows all
// registered states in lockstep with its own arrays.
type GrowableState interface {
	// StateName returns the name of the state, for error messages.
	StateName() string

	// GrowBy extends the state by n default-valued entries.
	GrowBy(n int)

	// Len returns the number of entries currently held.
	Len() int
}

// People is an arena-style growable agent store. Agents are identified by
// UID, which doubles as the array index. Dead agents are tombstoned rather
// than removed, so outstanding UID references never dangle.
type People struct {
	age    []float64
	female []bool
	parent []UID
	slot   []int

	alive     []bool
	deathStep []int

	numAlive int

	pendingDeath   UIDs
	deathRequested []bool

	states []GrowableState
}

// New creates a People arena with n initial agents. Initial agents have age
// 0, no parent, and a slot equal to their own UID. Callers are expected to
// assign ages and sexes before the simulation starts.
func New(n int) *People {
	if n < 0 {
		log.Panicf("cannot create a population of %d agents", n)
	}

	p := &People{}
	p.Grow(n, nil)

	return p
}

// NumAgents returns the total number of rows in the arena, dead or alive.
func (p *People) NumAgents() int {
	return len(p.age)
}

// NumAlive returns the number of agents currently alive, including unborn
// embryos.
func (p *People) NumAlive() int {
	return p.numAlive
}

// AliveUIDs returns the UIDs of all living agents in ascending order.
func (p *People) AliveUIDs() UIDs {
	uids := make(UIDs, 0, p.numAlive)
	for uid, a := range p.alive {
		if a {
			uids = append(uids, UID(uid))
		}
	}

	return uids
}

// Alive reports whether the agent is currently alive.
func (p *People) Alive(uid UID) bool {
	return p.alive[uid]
}

// Grow adds n agents to the arena and returns their UIDs. If slots is
// non-nil it must have length n and provides the reserved slot index for
// each new agent; otherwise each agent's slot equals its UID. All registered
// module states grow in lockstep.
func (p *People) Grow(n int, slots []int) UIDs {
	if slots != nil && len(slots) != n {
		log.Panicf("growing %d agents with %d slots", n, len(slots))
	}

	first := len(p.age)
	uids := make(UIDs, n)

	for i := 0; i < n; i++ {
		uid := UID(first + i)
		uids[i] = uid

		slot := int(uid)
		if slots != nil {
			slot = slots[i]
		}

		p.age = append(p.age, 0)
		p.female = append(p.female, false)
		p.parent = append(p.parent, NilUID)
		p.slot = append(p.slot, slot)
		p.alive = append(p.alive, true)
		p.deathStep = append(p.deathStep, -1)
		p.deathRequested = append(p.deathRequested, false)
	}

	p.numAlive += n

	for _, s := range p.states {
		s.GrowBy(n)
	}

	return uids
}

// RegisterState attaches a module-owned per-UID state array to the arena.
// The state is immediately grown to the current arena size and kept in sync
// with every later Grow call.
func (p *People) RegisterState(s GrowableState) {
	if s.Len() > p.NumAgents() {
		log.Panicf("state %s is larger than the population (%d > %d)",
			s.StateName(), s.Len(), p.NumAgents())
	}

	s.GrowBy(p.NumAgents() - s.Len())
	p.states = append(p.states, s)
}

// RequestDeath queues agents for removal at the end of the current step.
// Requests for dead or already-queued agents are ignored.
func (p *People) RequestDeath(uids UIDs) {
	for _, uid := range uids {
		if !p.alive[uid] || p.deathRequested[uid] {
			continue
		}
		p.deathRequested[uid] = true
		p.pendingDeath = append(p.pendingDeath, uid)
	}
}

// HasPendingDeaths reports whether any death requests await commitment.
func (p *People) HasPendingDeaths() bool {
	return len(p.pendingDeath) > 0
}

// CommitPendingDeaths tombstones all queued agents, recording ti as their
// step of death, and returns the UIDs that actually died. The queue is
// drained, so death-cascade observers may safely request further deaths
// while processing the returned batch.
func (p *People) CommitPendingDeaths(ti int) UIDs {
	dead := p.pendingDeath
	p.pendingDeath = nil

	for _, uid := range dead {
		p.alive[uid] = false
		p.deathStep[uid] = ti
		p.deathRequested[uid] = false
		p.numAlive--
	}

	return dead
}

// AdvanceAges ages every living agent by dt years. Embryos (negative age)
// advance toward zero like everyone else.
func (p *People) AdvanceAges(dt float64) {
	for uid, a := range p.alive {
		if a {
			p.age[uid] += dt
		}
	}
}

// Age returns the agent's age in years. Embryo ages are negative, counted
// from conception.
func (p *People) Age(uid UID) float64 { return p.age[uid] }

// SetAge sets the agent's age in years.
func (p *People) SetAge(uid UID, age float64) { p.age[uid] = age }

// Female reports whether the agent is female.
func (p *People) Female(uid UID) bool { return p.female[uid] }

// SetFemale sets the agent's sex.
func (p *People) SetFemale(uid UID, female bool) { p.female[uid] = female }

// Parent returns the agent's mother UID, or NilUID for initial agents and
// rate-driven births.
func (p *People) Parent(uid UID) UID { return p.parent[uid] }

// SetParent records the agent's mother.
func (p *People) SetParent(uid, parent UID) { p.parent[uid] = parent }

// Slot returns the reserved slot index assigned at growth time.
func (p *People) Slot(uid UID) int { return p.slot[uid] }

// DeathStep returns the step at which the agent died, or -1 if alive.
func (p *People) DeathStep(uid UID) int { return p.deathStep[uid] }

// FemaleUIDs returns the UIDs of all living female agents.
func (p *People) FemaleUIDs() UIDs {
	uids := make(UIDs, 0, p.numAlive)
	for uid, a := range p.alive {
		if a && p.female[uid] {
			uids = append(uids, UID(uid))
		}
	}

	return uids
}

func (p *People) String() string {
	return fmt.Sprintf("People(%d agents, %d alive)", p.NumAgents(), p.numAlive)
}
