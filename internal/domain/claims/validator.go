package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Validation issue codes. Codes are stable identifiers consumed by API
// clients; messages are advisory.
const (
	CodeMissingClient        = "MISSING_CLIENT"
	CodeMissingPayer         = "MISSING_PAYER"
	CodeNoServiceLines       = "NO_SERVICE_LINES"
	CodeInvalidDateRange     = "INVALID_DATE_RANGE"
	CodeClientNotFound       = "CLIENT_NOT_FOUND"
	CodeClientInactive       = "CLIENT_INACTIVE"
	CodePayerNotFound        = "PAYER_NOT_FOUND"
	CodePayerInactive        = "PAYER_INACTIVE"
	CodeServiceOutsideRange  = "SERVICE_OUTSIDE_PERIOD"
	CodeDuplicateClaim       = "DUPLICATE_CLAIM"
	CodeAuthorizationMissing = "AUTHORIZATION_MISSING"
	CodeAuthorizationInvalid = "AUTHORIZATION_INVALID"
	CodeTimelyFiling         = "TIMELY_FILING"
	CodeInvalidCoding        = "INVALID_CODING"
	CodeTotalMismatch        = "TOTAL_MISMATCH"
)

// PayerInfo is the reference-data view of a payer the validator needs.
type PayerInfo struct {
	ID                    uuid.UUID
	Name                  string
	Active                bool
	TimelyFilingDays      int
	RequiresAuthorization bool
}

// ClientInfo is the reference-data view of a client the validator needs.
type ClientInfo struct {
	ID     uuid.UUID
	Active bool
}

// PayerDirectory resolves payer reference data.
type PayerDirectory interface {
	GetPayer(ctx context.Context, id uuid.UUID) (*PayerInfo, error)
}

// ClientDirectory resolves client reference data.
type ClientDirectory interface {
	GetClient(ctx context.Context, id uuid.UUID) (*ClientInfo, error)
}

// AuthorizationStatus is the outcome of a prior-authorization lookup.
type AuthorizationStatus string

const (
	AuthorizationGranted AuthorizationStatus = "GRANTED"
	AuthorizationMissing AuthorizationStatus = "MISSING"
	AuthorizationExpired AuthorizationStatus = "EXPIRED"
)

// AuthorizationChecker answers whether an active prior authorization covers a
// client/payer/service-code combination for a date range.
type AuthorizationChecker interface {
	CheckAuthorization(ctx context.Context, clientID, payerID uuid.UUID, serviceCode string, start, end time.Time) (AuthorizationStatus, error)
}

// CodeRegistry answers whether a procedure/service code is recognized and
// active across a date range.
type CodeRegistry interface {
	IsActiveCode(ctx context.Context, code string, start, end time.Time) (bool, error)
}

// DuplicateFinder locates other non-VOID claims for the same client and payer
// whose service period overlaps the candidate and which share a service code.
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, claim *Claim, serviceCodes []string) ([]*Claim, error)
}

// Validator evaluates a claim snapshot plus its service lines against the
// business rules. Evaluation is read-only and idempotent: the same snapshot
// always yields the same result, in the same order.
type Validator struct {
	payers     PayerDirectory
	clients    ClientDirectory
	authz      AuthorizationChecker
	codes      CodeRegistry
	duplicates DuplicateFinder
}

func NewValidator(payers PayerDirectory, clients ClientDirectory, authz AuthorizationChecker, codes CodeRegistry, duplicates DuplicateFinder) *Validator {
	return &Validator{payers: payers, clients: clients, authz: authz, codes: codes, duplicates: duplicates}
}

// Validate evaluates the claim as of asOf (the prospective submission date
// when the claim has none recorded). Lookup failures from collaborators are
// returned as errors, not folded into the result.
func (v *Validator) Validate(ctx context.Context, claim *Claim, lines []*ServiceLine, asOf time.Time) (*ValidationResult, error) {
	result := &ValidationResult{ClaimID: claim.ID, Valid: true}

	v.checkRequired(claim, lines, result)
	if len(result.Errors) > 0 {
		// Referential and payer-rule checks need the required fields.
		return result, nil
	}

	payer, err := v.checkReferences(ctx, claim, result)
	if err != nil {
		return nil, err
	}

	v.checkServicePeriod(claim, lines, result)

	if err := v.checkCoding(ctx, claim, lines, result); err != nil {
		return nil, err
	}

	if payer != nil && payer.RequiresAuthorization {
		if err := v.checkAuthorization(ctx, claim, lines, result); err != nil {
			return nil, err
		}
	}

	if payer != nil {
		v.checkTimelyFiling(claim, payer, asOf, result)
	}

	if err := v.checkDuplicates(ctx, claim, lines, result); err != nil {
		return nil, err
	}

	if SumLineAmounts(lines) != claim.TotalAmount {
		result.addWarning(CodeTotalMismatch,
			fmt.Sprintf("claim total %s does not equal the sum of service line amounts %s",
				claim.TotalAmount, SumLineAmounts(lines)), "total_amount_cents")
	}

	return result, nil
}

func (v *Validator) checkRequired(claim *Claim, lines []*ServiceLine, result *ValidationResult) {
	if claim.ClientID == uuid.Nil {
		result.addError(CodeMissingClient, "client is required", "client_id")
	}
	if claim.PayerID == uuid.Nil {
		result.addError(CodeMissingPayer, "payer is required", "payer_id")
	}
	if len(lines) == 0 {
		result.addError(CodeNoServiceLines, "at least one service line is required", "")
	}
	if claim.ServiceStartDate.IsZero() || claim.ServiceEndDate.IsZero() {
		result.addError(CodeInvalidDateRange, "service period is required", "service_start_date")
	} else if claim.ServiceEndDate.Before(claim.ServiceStartDate) {
		result.addError(CodeInvalidDateRange, "service start date must not be after end date", "service_start_date")
	}
}

func (v *Validator) checkReferences(ctx context.Context, claim *Claim, result *ValidationResult) (*PayerInfo, error) {
	client, err := v.clients.GetClient(ctx, claim.ClientID)
	if err != nil {
		return nil, fmt.Errorf("lookup client %s: %w", claim.ClientID, err)
	}
	switch {
	case client == nil:
		result.addError(CodeClientNotFound, "client does not exist", "client_id")
	case !client.Active:
		result.addError(CodeClientInactive, "client is not active", "client_id")
	}

	payer, err := v.payers.GetPayer(ctx, claim.PayerID)
	if err != nil {
		return nil, fmt.Errorf("lookup payer %s: %w", claim.PayerID, err)
	}
	switch {
	case payer == nil:
		result.addError(CodePayerNotFound, "payer does not exist", "payer_id")
	case !payer.Active:
		result.addError(CodePayerInactive, "payer is not active", "payer_id")
	}
	return payer, nil
}

func (v *Validator) checkServicePeriod(claim *Claim, lines []*ServiceLine, result *ValidationResult) {
	for _, l := range lines {
		if l.ServiceDate.Before(claim.ServiceStartDate) || l.ServiceDate.After(claim.ServiceEndDate) {
			result.addError(CodeServiceOutsideRange,
				fmt.Sprintf("service line %d dated %s falls outside the claim period",
					l.Sequence, l.ServiceDate.Format("2006-01-02")), "service_date")
		}
	}
}

func (v *Validator) checkCoding(ctx context.Context, claim *Claim, lines []*ServiceLine, result *ValidationResult) error {
	seen := map[string]bool{}
	for _, l := range lines {
		if seen[l.ServiceCode] {
			continue
		}
		seen[l.ServiceCode] = true
		active, err := v.codes.IsActiveCode(ctx, l.ServiceCode, claim.ServiceStartDate, claim.ServiceEndDate)
		if err != nil {
			return fmt.Errorf("lookup service code %s: %w", l.ServiceCode, err)
		}
		if !active {
			result.addError(CodeInvalidCoding,
				fmt.Sprintf("service code %s is not recognized or not active for the claim period", l.ServiceCode),
				"service_code")
		}
	}
	return nil
}

func (v *Validator) checkAuthorization(ctx context.Context, claim *Claim, lines []*ServiceLine, result *ValidationResult) error {
	seen := map[string]bool{}
	for _, l := range lines {
		if seen[l.ServiceCode] {
			continue
		}
		seen[l.ServiceCode] = true
		status, err := v.authz.CheckAuthorization(ctx, claim.ClientID, claim.PayerID, l.ServiceCode,
			claim.ServiceStartDate, claim.ServiceEndDate)
		if err != nil {
			return fmt.Errorf("check authorization for %s: %w", l.ServiceCode, err)
		}
		switch status {
		case AuthorizationMissing:
			result.addError(CodeAuthorizationMissing,
				fmt.Sprintf("no prior authorization on file for service code %s", l.ServiceCode), "service_code")
		case AuthorizationExpired:
			result.addError(CodeAuthorizationInvalid,
				fmt.Sprintf("authorization for service code %s does not cover the claim period", l.ServiceCode), "service_code")
		}
	}
	return nil
}

func (v *Validator) checkTimelyFiling(claim *Claim, payer *PayerInfo, asOf time.Time, result *ValidationResult) {
	if payer.TimelyFilingDays <= 0 {
		return
	}
	filed := asOf
	if claim.SubmissionDate != nil {
		filed = *claim.SubmissionDate
	}
	elapsed := int(filed.Sub(claim.ServiceEndDate).Hours() / 24)
	if elapsed > payer.TimelyFilingDays {
		result.addError(CodeTimelyFiling,
			fmt.Sprintf("%d days elapsed since service end; payer filing window is %d days",
				elapsed, payer.TimelyFilingDays), "submission_date")
	}
}

func (v *Validator) checkDuplicates(ctx context.Context, claim *Claim, lines []*ServiceLine, result *ValidationResult) error {
	codes := make([]string, 0, len(lines))
	seen := map[string]bool{}
	for _, l := range lines {
		if !seen[l.ServiceCode] {
			seen[l.ServiceCode] = true
			codes = append(codes, l.ServiceCode)
		}
	}
	dups, err := v.duplicates.FindDuplicates(ctx, claim, codes)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	for _, d := range dups {
		result.addError(CodeDuplicateClaim,
			fmt.Sprintf("claim %s covers the same client, payer, overlapping dates and service codes", d.ClaimNumber),
			"")
	}
	return nil
}
