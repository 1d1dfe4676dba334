package refdata

import (
	"time"

	"github.com/google/uuid"
)

// Payer maps to the payer table.
type Payer struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	PayerCode             string    `db:"payer_code" json:"payer_code"`
	Active                bool      `db:"active" json:"active"`
	TimelyFilingDays      int       `db:"timely_filing_days" json:"timely_filing_days"`
	RequiresAuthorization bool      `db:"requires_authorization" json:"requires_authorization"`
	ContactEmail          *string   `db:"contact_email" json:"contact_email,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Client maps to the client table. Master-data management lives elsewhere;
// this package only reads what claim validation needs.
type Client struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	ExternalID *string   `db:"external_id" json:"external_id,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ProcedureCode maps to the procedure_code table. A code is billable for a
// service period only when the period falls inside [EffectiveFrom,
// EffectiveTo]; a nil EffectiveTo means open-ended.
type ProcedureCode struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Code          string     `db:"code" json:"code"`
	Description   string     `db:"description" json:"description"`
	Active        bool       `db:"active" json:"active"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Authorization maps to the service_authorization table: a payer's prior
// approval for a client to receive a service over a date range.
type Authorization struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClientID        uuid.UUID  `db:"client_id" json:"client_id"`
	PayerID         uuid.UUID  `db:"payer_id" json:"payer_id"`
	ServiceCode     string     `db:"service_code" json:"service_code"`
	AuthorizationNo string     `db:"authorization_no" json:"authorization_no"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	EndDate         time.Time  `db:"end_date" json:"end_date"`
	UnitsApproved   *int       `db:"units_approved" json:"units_approved,omitempty"`
	RevokedAt       *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Covers reports whether the authorization is in force for the whole period.
func (a *Authorization) Covers(start, end time.Time) bool {
	if a.RevokedAt != nil {
		return false
	}
	return !start.Before(a.StartDate) && !end.After(a.EndDate)
}
