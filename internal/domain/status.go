package domain

// HandoffStatus is the lifecycle state of a Handoff.
type HandoffStatus string

const (
	StatusPending  HandoffStatus = "pending"
	StatusAssigned HandoffStatus = "assigned"
	StatusResolved HandoffStatus = "resolved"
	StatusRejected HandoffStatus = "rejected"
	StatusExpired  HandoffStatus = "expired"
)

// transitions lists, per source state, the states it may move to. Terminal
// states have no entry.
var transitions = map[HandoffStatus][]HandoffStatus{
	StatusPending:  {StatusAssigned, StatusRejected, StatusExpired},
	StatusAssigned: {StatusResolved, StatusRejected},
}

// Valid reports whether s is one of the known statuses.
func (s HandoffStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusResolved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s HandoffStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected || s == StatusExpired
}

// IsActive reports whether s is pending or assigned.
func (s HandoffStatus) IsActive() bool {
	return s == StatusPending || s == StatusAssigned
}

// CanTransition reports whether from → to is permitted.
func CanTransition(from, to HandoffStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from s in one step.
func AllowedTransitions(s HandoffStatus) []HandoffStatus {
	out := make([]HandoffStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// ActiveStatuses lists the non-terminal statuses.
func ActiveStatuses() []HandoffStatus {
	return []HandoffStatus{StatusPending, StatusAssigned}
}

// AllStatuses lists every status.
func AllStatuses() []HandoffStatus {
	return []HandoffStatus{StatusPending, StatusAssigned, StatusResolved, StatusRejected, StatusExpired}
}
