package claims

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cents is a fixed-point currency amount in hundredths of a dollar. All
// monetary arithmetic in the engine happens on integers; floats never touch
// claim amounts.
type Cents int64

func (c Cents) String() string {
	sign := ""
	v := c
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ClaimType classifies a claim relative to a prior submission.
type ClaimType string

const (
	TypeOriginal    ClaimType = "ORIGINAL"
	TypeAdjustment  ClaimType = "ADJUSTMENT"
	TypeReplacement ClaimType = "REPLACEMENT"
	TypeVoid        ClaimType = "VOID"
)

var validClaimTypes = map[ClaimType]bool{
	TypeOriginal: true, TypeAdjustment: true, TypeReplacement: true, TypeVoid: true,
}

// Valid reports whether t is a recognized claim type.
func (t ClaimType) Valid() bool { return validClaimTypes[t] }

// RequiresOriginal reports whether claims of this type must reference the
// claim they correct or supersede.
func (t ClaimType) RequiresOriginal() bool {
	return t == TypeAdjustment || t == TypeReplacement || t == TypeVoid
}

// SubmissionMethod records how a claim reached the payer.
type SubmissionMethod string

const (
	MethodElectronic    SubmissionMethod = "ELECTRONIC"
	MethodPaper         SubmissionMethod = "PAPER"
	MethodPortal        SubmissionMethod = "PORTAL"
	MethodClearinghouse SubmissionMethod = "CLEARINGHOUSE"
	MethodDirect        SubmissionMethod = "DIRECT"
)

var validSubmissionMethods = map[SubmissionMethod]bool{
	MethodElectronic: true, MethodPaper: true, MethodPortal: true,
	MethodClearinghouse: true, MethodDirect: true,
}

// Valid reports whether m is a recognized submission method.
func (m SubmissionMethod) Valid() bool { return validSubmissionMethods[m] }

// DenialReason is the closed set of payer denial categories.
type DenialReason string

const (
	DenialAuthorizationMissing DenialReason = "AUTHORIZATION_MISSING"
	DenialTimelyFiling         DenialReason = "TIMELY_FILING"
	DenialDuplicate            DenialReason = "DUPLICATE_CLAIM"
	DenialNotCovered           DenialReason = "SERVICE_NOT_COVERED"
	DenialEligibility          DenialReason = "CLIENT_INELIGIBLE"
	DenialCoding               DenialReason = "INVALID_CODING"
	DenialDocumentation        DenialReason = "INSUFFICIENT_DOCUMENTATION"
	DenialOther                DenialReason = "OTHER"
)

var validDenialReasons = map[DenialReason]bool{
	DenialAuthorizationMissing: true, DenialTimelyFiling: true, DenialDuplicate: true,
	DenialNotCovered: true, DenialEligibility: true, DenialCoding: true,
	DenialDocumentation: true, DenialOther: true,
}

// Valid reports whether r is a recognized denial reason.
func (r DenialReason) Valid() bool { return validDenialReasons[r] }

// Claim maps to the claim table. Status is mutated exclusively through the
// state machine; Version backs the optimistic concurrency check on every
// transition.
type Claim struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ClaimNumber      string            `db:"claim_number" json:"claim_number"`
	ExternalClaimID  *string           `db:"external_claim_id" json:"external_claim_id,omitempty"`
	ClientID         uuid.UUID         `db:"client_id" json:"client_id"`
	PayerID          uuid.UUID         `db:"payer_id" json:"payer_id"`
	OriginalClaimID  *uuid.UUID        `db:"original_claim_id" json:"original_claim_id,omitempty"`
	ClaimType        ClaimType         `db:"claim_type" json:"claim_type"`
	Status           ClaimStatus       `db:"status" json:"status"`
	TotalAmount      Cents             `db:"total_amount_cents" json:"total_amount_cents"`
	ServiceStartDate time.Time         `db:"service_start_date" json:"service_start_date"`
	ServiceEndDate   time.Time         `db:"service_end_date" json:"service_end_date"`
	SubmissionDate   *time.Time        `db:"submission_date" json:"submission_date,omitempty"`
	SubmissionMethod *SubmissionMethod `db:"submission_method" json:"submission_method,omitempty"`
	AdjudicationDate *time.Time        `db:"adjudication_date" json:"adjudication_date,omitempty"`
	DenialReason     *DenialReason     `db:"denial_reason" json:"denial_reason,omitempty"`
	DenialDetails    *string           `db:"denial_details" json:"denial_details,omitempty"`
	AdjustmentCodes  map[string]string `db:"adjustment_codes" json:"adjustment_codes,omitempty"`
	AppealReason     *string           `db:"appeal_reason" json:"appeal_reason,omitempty"`
	Version          int               `db:"version" json:"version"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
	CreatedBy        *string           `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy        *string           `db:"updated_by" json:"updated_by,omitempty"`
}

// GetVersion returns the current optimistic-lock version.
func (c *Claim) GetVersion() int { return c.Version }

// SetVersion sets the current optimistic-lock version.
func (c *Claim) SetVersion(v int) { c.Version = v }

// ServiceLine maps to the claim_service_line table. Units, rate and amount
// are fixed at claim creation; the claim total equals the sum of line
// amounts at that point.
type ServiceLine struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClaimID     uuid.UUID `db:"claim_id" json:"claim_id"`
	Sequence    int       `db:"sequence" json:"sequence"`
	ServiceCode string    `db:"service_code" json:"service_code"`
	ServiceDate time.Time `db:"service_date" json:"service_date"`
	Units       int       `db:"units" json:"units"`
	UnitRate    Cents     `db:"unit_rate_cents" json:"unit_rate_cents"`
	Amount      Cents     `db:"amount_cents" json:"amount_cents"`
	Description *string   `db:"description" json:"description,omitempty"`
}

// SumLineAmounts totals the billed amount across service lines.
func SumLineAmounts(lines []*ServiceLine) Cents {
	var total Cents
	for _, l := range lines {
		total += l.Amount
	}
	return total
}

// StatusHistory maps to the claim_status_history table. Rows are append-only;
// one row per transition, including the initial DRAFT entry. UserID is nil
// for system-initiated transitions.
type StatusHistory struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	ClaimID   uuid.UUID   `db:"claim_id" json:"claim_id"`
	Status    ClaimStatus `db:"status" json:"status"`
	Notes     *string     `db:"notes" json:"notes,omitempty"`
	UserID    *string     `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// ValidationIssue is a single coded validation finding.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ValidationResult is the ephemeral outcome of evaluating a claim snapshot.
// Errors block submission; warnings do not. It is never persisted.
type ValidationResult struct {
	ClaimID  uuid.UUID         `json:"claim_id"`
	Valid    bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

func (r *ValidationResult) addError(code, message, field string) {
	r.Errors = append(r.Errors, ValidationIssue{Code: code, Message: message, Field: field})
	r.Valid = false
}

func (r *ValidationResult) addWarning(code, message, field string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Code: code, Message: message, Field: field})
}

// BatchError is a per-claim failure inside a batch operation.
type BatchError struct {
	ClaimID uuid.UUID `json:"claim_id"`
	Message string    `json:"message"`
}

// BatchResult aggregates the outcome of a best-effort batch operation. One
// claim's failure never aborts the batch; it becomes an entry in Errors.
type BatchResult struct {
	TotalProcessed  int          `json:"total_processed"`
	SuccessCount    int          `json:"success_count"`
	ErrorCount      int          `json:"error_count"`
	Errors          []BatchError `json:"errors"`
	ProcessedClaims []uuid.UUID  `json:"processed_claims"`
}

func (b *BatchResult) recordSuccess(id uuid.UUID) {
	b.TotalProcessed++
	b.SuccessCount++
	b.ProcessedClaims = append(b.ProcessedClaims, id)
}

func (b *BatchResult) recordError(id uuid.UUID, err error) {
	b.TotalProcessed++
	b.ErrorCount++
	b.Errors = append(b.Errors, BatchError{ClaimID: id, Message: err.Error()})
}
