package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows claim list queries.
type Filter struct {
	Status      *ClaimStatus
	ClientID    *uuid.UUID
	PayerID     *uuid.UUID
	ClaimType   *ClaimType
	ServiceFrom *time.Time
	ServiceTo   *time.Time
}

// AgingRow is the projection the aging engine consumes: one row per open
// (non-terminal, non-VOID) claim.
type AgingRow struct {
	ClaimID        uuid.UUID
	PayerID        uuid.UUID
	Status         ClaimStatus
	TotalAmount    Cents
	SubmissionDate *time.Time
	ServiceEndDate time.Time
}

// MetricsRow is the projection the metrics engine consumes: one row per claim
// submitted inside the query window. EverDenied is derived from the status
// history, not the current status.
type MetricsRow struct {
	ClaimID          uuid.UUID
	PayerID          uuid.UUID
	EverDenied       bool
	SubmissionDate   time.Time
	AdjudicationDate *time.Time
}

// Repository is the persistence boundary for claims, service lines and the
// status history log. Create and Transition are transactional: all rows for
// one call commit or roll back together.
type Repository interface {
	// Create persists the claim, its service lines and the initial DRAFT
	// history row in a single transaction.
	Create(ctx context.Context, c *Claim, lines []*ServiceLine, entry *StatusHistory) error

	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetByClaimNumber(ctx context.Context, claimNumber string) (*Claim, error)

	// Update persists draft-stage field edits with an optimistic version
	// check. A stale version yields a ConcurrencyError.
	Update(ctx context.Context, c *Claim) error

	// Transition persists the status change and appends the history entry in
	// one transaction, guarded by the claim's version. A stale version yields
	// a ConcurrencyError and writes nothing.
	Transition(ctx context.Context, c *Claim, entry *StatusHistory) error

	Search(ctx context.Context, f Filter, limit, offset int) ([]*Claim, int, error)
	ServiceLines(ctx context.Context, claimID uuid.UUID) ([]*ServiceLine, error)
	History(ctx context.Context, claimID uuid.UUID) ([]*StatusHistory, error)

	// FindDuplicates implements DuplicateFinder over stored claims.
	FindDuplicates(ctx context.Context, c *Claim, serviceCodes []string) ([]*Claim, error)

	// AgingRows returns one row per open claim for receivables bucketing.
	AgingRows(ctx context.Context) ([]*AgingRow, error)

	// MetricsRows returns one row per claim submitted in [from, to].
	MetricsRows(ctx context.Context, from, to time.Time) ([]*MetricsRow, error)
}
