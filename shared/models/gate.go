package models

// AccessReason explains why the application gate is open or closed.
type AccessReason string

const (
	ReasonNoViewing            AccessReason = "no-viewing"
	ReasonViewingRequested     AccessReason = "viewing-requested"
	ReasonViewingScheduled     AccessReason = "viewing-scheduled"
	ReasonAwaitingConfirmation AccessReason = "awaiting-confirmation"
	ReasonAwaitingApplication  AccessReason = "awaiting-application"
	ReasonAllowed              AccessReason = "allowed"
)

// ViewingSnapshot is the gate's entire view of the world: the latest
// viewing's status plus the two landlord-set flags.
type ViewingSnapshot struct {
	Exists          bool          `json:"exists"`
	Status          ViewingStatus `json:"status,omitempty"`
	Confirmed       bool          `json:"confirmed"`
	ApplicationSent bool          `json:"application_sent"`
}

// AccessDecision is the gate's verdict for one (property, tenant) pair.
type AccessDecision struct {
	Allowed bool         `json:"allowed"`
	Reason  AccessReason `json:"reason"`
}

// SnapshotOf builds a gate snapshot from the latest viewing, which may
// be nil when no viewing exists.
func SnapshotOf(v *Viewing) ViewingSnapshot {
	if v == nil {
		return ViewingSnapshot{}
	}
	return ViewingSnapshot{
		Exists:          true,
		Status:          v.Status,
		Confirmed:       v.ViewingConfirmed,
		ApplicationSent: v.ApplicationSent,
	}
}

// EvaluateApplicationAccess decides whether a tenant may submit a rental
// application. Pure function, recomputed on every check. The only path
// to an open gate is a completed viewing that the landlord has both
// confirmed and followed with a sent application.
//
// The decision is advisory for the UI; submission re-runs it server-side.
func EvaluateApplicationAccess(s ViewingSnapshot) AccessDecision {
	if !s.Exists || s.Status == ViewingCancelled {
		return AccessDecision{Allowed: false, Reason: ReasonNoViewing}
	}
	switch s.Status {
	case ViewingRequested:
		return AccessDecision{Allowed: false, Reason: ReasonViewingRequested}
	case ViewingScheduled:
		return AccessDecision{Allowed: false, Reason: ReasonViewingScheduled}
	}
	if !s.Confirmed {
		return AccessDecision{Allowed: false, Reason: ReasonAwaitingConfirmation}
	}
	if !s.ApplicationSent {
		return AccessDecision{Allowed: false, Reason: ReasonAwaitingApplication}
	}
	return AccessDecision{Allowed: true, Reason: ReasonAllowed}
}
