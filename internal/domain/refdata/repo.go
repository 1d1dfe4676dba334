package refdata

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for claim reference data. Lookups
// return (nil, nil) for a missing record; callers decide whether absence is
// an error.
type Repository interface {
	GetPayer(ctx context.Context, id uuid.UUID) (*Payer, error)
	ListPayers(ctx context.Context, activeOnly bool, limit, offset int) ([]*Payer, int, error)
	CreatePayer(ctx context.Context, p *Payer) error
	UpdatePayer(ctx context.Context, p *Payer) error

	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	CreateClient(ctx context.Context, cl *Client) error

	GetProcedureCode(ctx context.Context, code string) (*ProcedureCode, error)
	CreateProcedureCode(ctx context.Context, pc *ProcedureCode) error

	// FindAuthorizations returns the non-revoked authorizations on file for
	// the client/payer/service-code combination, newest first.
	FindAuthorizations(ctx context.Context, clientID, payerID uuid.UUID, serviceCode string) ([]*Authorization, error)
	CreateAuthorization(ctx context.Context, a *Authorization) error
	RevokeAuthorization(ctx context.Context, id uuid.UUID, at time.Time) error
}
