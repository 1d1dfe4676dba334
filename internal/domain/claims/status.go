package claims

// ClaimStatus is a state in the claim lifecycle. The set of states and legal
// transitions is domain-fixed, not user-extensible.
type ClaimStatus string

const (
	StatusDraft        ClaimStatus = "DRAFT"
	StatusValidated    ClaimStatus = "VALIDATED"
	StatusSubmitted    ClaimStatus = "SUBMITTED"
	StatusAcknowledged ClaimStatus = "ACKNOWLEDGED"
	StatusPending      ClaimStatus = "PENDING"
	StatusPaid         ClaimStatus = "PAID"
	StatusPartialPaid  ClaimStatus = "PARTIAL_PAID"
	StatusDenied       ClaimStatus = "DENIED"
	StatusAppealed     ClaimStatus = "APPEALED"
	StatusFinalDenied  ClaimStatus = "FINAL_DENIED"
	StatusVoid         ClaimStatus = "VOID"
)

var validStatuses = map[ClaimStatus]bool{
	StatusDraft: true, StatusValidated: true, StatusSubmitted: true,
	StatusAcknowledged: true, StatusPending: true, StatusPaid: true,
	StatusPartialPaid: true, StatusDenied: true, StatusAppealed: true,
	StatusFinalDenied: true, StatusVoid: true,
}

// Valid reports whether s is a recognized lifecycle state.
func (s ClaimStatus) Valid() bool { return validStatuses[s] }

// IsTerminal reports whether the claim can never leave s. Terminal claims are
// permanently read-only.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusVoid || s == StatusFinalDenied
}

// IsDenialFamily reports whether s carries denial metadata.
func (s ClaimStatus) IsDenialFamily() bool {
	return s == StatusDenied || s == StatusFinalDenied
}

// IsPostSubmission reports whether the claim has been transmitted to a payer
// and is awaiting or past adjudication.
func (s ClaimStatus) IsPostSubmission() bool {
	switch s {
	case StatusSubmitted, StatusAcknowledged, StatusPending, StatusPaid,
		StatusPartialPaid, StatusDenied, StatusAppealed, StatusFinalDenied:
		return true
	}
	return false
}

// transitions is the forward edge set of the lifecycle graph. VOID is handled
// separately: it is reachable from every non-terminal state. A DENIED or
// APPEALED claim re-enters SUBMITTED on resubmission under the same identity.
var transitions = map[ClaimStatus][]ClaimStatus{
	StatusDraft:        {StatusValidated},
	StatusValidated:    {StatusSubmitted},
	StatusSubmitted:    {StatusAcknowledged, StatusPending, StatusDenied},
	StatusAcknowledged: {StatusPending, StatusPaid, StatusPartialPaid, StatusDenied},
	StatusPending:      {StatusPaid, StatusPartialPaid, StatusDenied},
	StatusDenied:       {StatusAppealed, StatusFinalDenied, StatusSubmitted},
	StatusAppealed:     {StatusPaid, StatusPartialPaid, StatusFinalDenied, StatusSubmitted},
	StatusPartialPaid:  nil,
	StatusPaid:         nil,
	StatusFinalDenied:  nil,
	StatusVoid:         nil,
}

// CanTransition reports whether the edge from → to exists in the lifecycle
// graph. The status update itself, with its required side effects, is applied
// by the Service; this is the pure gate.
func CanTransition(from, to ClaimStatus) bool {
	if from == to {
		return false
	}
	if to == StatusVoid {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
