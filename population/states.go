package population

import "math"

// A BoolState is a named per-UID boolean array, such as "pregnant".
type BoolState struct {
	name  string
	label string
	def   bool
	vals  []bool
}

// NewBoolState creates a boolean state that defaults to false.
func NewBoolState(name, label string) *BoolState {
	return &BoolState{name: name, label: label}
}

// NewBoolStateWithDefault creates a boolean state with a custom default.
func NewBoolStateWithDefault(name, label string, def bool) *BoolState {
	return &BoolState{name: name, label: label, def: def}
}

// StateName returns the name of the state.
func (s *BoolState) StateName() string { return s.name }

// Label returns the human-readable label of the state.
func (s *BoolState) Label() string { return s.label }

// GrowBy extends the state with n default-valued entries.
func (s *BoolState) GrowBy(n int) {
	for i := 0; i < n; i++ {
		s.vals = append(s.vals, s.def)
	}
}

// Len returns the number of entries held.
func (s *BoolState) Len() int { return len(s.vals) }

// Get returns the value for one agent.
func (s *BoolState) Get(uid UID) bool { return s.vals[uid] }

// Set assigns the value for one agent.
func (s *BoolState) Set(uid UID, v bool) { s.vals[uid] = v }

// SetAll assigns the value for every listed agent.
func (s *BoolState) SetAll(uids UIDs, v bool) {
	for _, uid := range uids {
		s.vals[uid] = v
	}
}

// Count returns the number of true entries among living agents.
func (s *BoolState) Count(p *People) int {
	n := 0
	for uid, v := range s.vals {
		if v && p.Alive(UID(uid)) {
			n++
		}
	}

	return n
}

// TrueUIDs returns the living agents for which the state is true.
func (s *BoolState) TrueUIDs(p *People) UIDs {
	uids := UIDs{}
	for uid, v := range s.vals {
		if v && p.Alive(UID(uid)) {
			uids = append(uids, UID(uid))
		}
	}

	return uids
}

// A FloatState is a named per-UID float array, such as "ti_delivery".
// Entries default to NaN, which marks "undefined".
type FloatState struct {
	name  string
	label string
	vals  []float64
}

// NewFloatState creates a float state that defaults to NaN.
func NewFloatState(name, label string) *FloatState {
	return &FloatState{name: name, label: label}
}

// StateName returns the name of the state.
func (s *FloatState) StateName() string { return s.name }

// Label returns the human-readable label of the state.
func (s *FloatState) Label() string { return s.label }

// GrowBy extends the state with n NaN entries.
func (s *FloatState) GrowBy(n int) {
	for i := 0; i < n; i++ {
		s.vals = append(s.vals, math.NaN())
	}
}

// Len returns the number of entries held.
func (s *FloatState) Len() int { return len(s.vals) }

// Get returns the value for one agent, NaN if undefined.
func (s *FloatState) Get(uid UID) float64 { return s.vals[uid] }

// Set assigns the value for one agent.
func (s *FloatState) Set(uid UID, v float64) { s.vals[uid] = v }

// Defined reports whether the agent's entry has been assigned.
func (s *FloatState) Defined(uid UID) bool { return !math.IsNaN(s.vals[uid]) }

// Clear resets the agent's entry to undefined.
func (s *FloatState) Clear(uid UID) { s.vals[uid] = math.NaN() }

// A UIDState is a named per-UID array of UID back-references, such as
// "child_uid". Entries default to NilUID.
type UIDState struct {
	name  string
	label string
	vals  []UID
}

// NewUIDState creates a UID-reference state that defaults to NilUID.
func NewUIDState(name, label string) *UIDState {
	return &UIDState{name: name, label: label}
}

// StateName returns the name of the state.
func (s *UIDState) StateName() string { return s.name }

// Label returns the human-readable label of the state.
func (s *UIDState) Label() string { return s.label }

// GrowBy extends the state with n NilUID entries.
func (s *UIDState) GrowBy(n int) {
	for i := 0; i < n; i++ {
		s.vals = append(s.vals, NilUID)
	}
}

// Len returns the number of entries held.
func (s *UIDState) Len() int { return len(s.vals) }

// Get returns the referenced UID, or NilUID if unset.
func (s *UIDState) Get(uid UID) UID { return s.vals[uid] }

// Set assigns the referenced UID.
func (s *UIDState) Set(uid, ref UID) { s.vals[uid] = ref }

// Defined reports whether the agent holds a reference.
func (s *UIDState) Defined(uid UID) bool { return s.vals[uid] != NilUID }

// Clear resets the reference to NilUID.
func (s *UIDState) Clear(uid UID) { s.vals[uid] = NilUID }
