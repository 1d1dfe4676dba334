package claims

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError reports that a referenced claim (or related record) does not
// exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func notFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// StateConflictError reports an attempted transition or action that is
// illegal from the claim's current status. The stored status is unchanged.
type StateConflictError struct {
	ClaimID uuid.UUID
	Current ClaimStatus
	Action  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("claim %s: cannot %s from status %s", e.ClaimID, e.Action, e.Current)
}

// ValidationFailedError carries the full validation result for an operation
// that was gated on a clean validation pass.
type ValidationFailedError struct {
	Result *ValidationResult
}

func (e *ValidationFailedError) Error() string {
	if e.Result == nil || len(e.Result.Errors) == 0 {
		return "claim validation failed"
	}
	return fmt.Sprintf("claim validation failed: %s (%d error(s))",
		e.Result.Errors[0].Code, len(e.Result.Errors))
}

// IntegrationError wraps a clearinghouse/payer adapter failure (timeout,
// protocol rejection, malformed response). Claim state is left unchanged and
// the caller may retry.
type IntegrationError struct {
	Op  string
	Err error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("clearinghouse %s: %v", e.Op, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// ConcurrencyError reports that a transition lost a race with another writer.
// The caller should re-fetch the claim and retry.
type ConcurrencyError struct {
	ClaimID uuid.UUID
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("claim %s was modified concurrently", e.ClaimID)
}
