package claims

import "testing"

func TestCanTransition_ForwardEdges(t *testing.T) {
	tests := []struct {
		from, to ClaimStatus
		want     bool
	}{
		{StatusDraft, StatusValidated, true},
		{StatusDraft, StatusSubmitted, false},
		{StatusValidated, StatusSubmitted, true},
		{StatusValidated, StatusDraft, false},
		{StatusSubmitted, StatusAcknowledged, true},
		{StatusSubmitted, StatusPending, true},
		{StatusSubmitted, StatusDenied, true},
		{StatusSubmitted, StatusPaid, false},
		{StatusAcknowledged, StatusPaid, true},
		{StatusAcknowledged, StatusPartialPaid, true},
		{StatusAcknowledged, StatusPending, true},
		{StatusAcknowledged, StatusDenied, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusPartialPaid, true},
		{StatusPending, StatusDenied, true},
		{StatusPending, StatusAcknowledged, false},
		{StatusDenied, StatusAppealed, true},
		{StatusDenied, StatusFinalDenied, true},
		{StatusDenied, StatusSubmitted, true},
		{StatusDenied, StatusPaid, false},
		{StatusAppealed, StatusPaid, true},
		{StatusAppealed, StatusPartialPaid, true},
		{StatusAppealed, StatusFinalDenied, true},
		{StatusAppealed, StatusSubmitted, true},
		{StatusAppealed, StatusDenied, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransition_SelfLoopRejected(t *testing.T) {
	for s := range validStatuses {
		if CanTransition(s, s) {
			t.Errorf("CanTransition(%s, %s) should be false", s, s)
		}
	}
}

func TestCanTransition_VoidFromAnyNonTerminal(t *testing.T) {
	for s := range validStatuses {
		if s == StatusVoid {
			continue
		}
		want := !s.IsTerminal()
		if got := CanTransition(s, StatusVoid); got != want {
			t.Errorf("CanTransition(%s, VOID) = %v, want %v", s, got, want)
		}
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range []ClaimStatus{StatusPaid, StatusVoid, StatusFinalDenied} {
		for to := range validStatuses {
			if CanTransition(from, to) {
				t.Errorf("terminal status %s must not transition to %s", from, to)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[ClaimStatus]bool{
		StatusPaid: true, StatusVoid: true, StatusFinalDenied: true,
	}
	for s := range validStatuses {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, terminal[s])
		}
	}
	// PARTIAL_PAID is an adjudicated but non-terminal state; it can still void.
	if StatusPartialPaid.IsTerminal() {
		t.Error("PARTIAL_PAID must not be terminal")
	}
}

func TestIsPostSubmission(t *testing.T) {
	if StatusDraft.IsPostSubmission() || StatusValidated.IsPostSubmission() || StatusVoid.IsPostSubmission() {
		t.Error("DRAFT, VALIDATED and VOID are not post-submission states")
	}
	for _, s := range []ClaimStatus{StatusSubmitted, StatusAcknowledged, StatusPending,
		StatusPaid, StatusPartialPaid, StatusDenied, StatusAppealed, StatusFinalDenied} {
		if !s.IsPostSubmission() {
			t.Errorf("%s should be post-submission", s)
		}
	}
}

func TestClaimStatus_Valid(t *testing.T) {
	if !StatusSubmitted.Valid() {
		t.Error("SUBMITTED should be valid")
	}
	if ClaimStatus("REJECTED").Valid() {
		t.Error("unknown status should not be valid")
	}
	if ClaimStatus("").Valid() {
		t.Error("empty status should not be valid")
	}
}
