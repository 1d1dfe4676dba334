package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GatewayReceipt is the clearinghouse acknowledgement of a transmitted claim.
type GatewayReceipt struct {
	ExternalClaimID string
}

// GatewayStatus is the payer-side view of a previously submitted claim.
type GatewayStatus struct {
	Status           ClaimStatus
	AdjudicationDate *time.Time
	DenialReason     *DenialReason
	DenialDetails    *string
}

// Gateway is the clearinghouse/payer adapter contract. Implementations are
// treated as unreliable: every call must be bounded by the caller's context
// and any failure leaves stored claim state untouched.
type Gateway interface {
	Submit(ctx context.Context, c *Claim, lines []*ServiceLine) (*GatewayReceipt, error)
	FetchStatus(ctx context.Context, externalClaimID string) (*GatewayStatus, error)
}

// Notifier receives fire-and-forget lifecycle notifications. Implementations
// must not block; errors are the notifier's problem, never the caller's.
type Notifier interface {
	ClaimSubmitted(ctx context.Context, c *Claim)
	SubmissionFailed(ctx context.Context, c *Claim, reason string)
	BatchCompleted(ctx context.Context, operation string, result *BatchResult)
	AppealResolved(ctx context.Context, c *Claim)
}

const defaultGatewayTimeout = 30 * time.Second

// Service orchestrates the claim lifecycle: creation, validation gating,
// submission and resubmission, clearinghouse status refresh, and the void/
// appeal/adjustment actions. All status mutations go through the state
// machine and persist atomically with their history entry.
type Service struct {
	repo           Repository
	validator      *Validator
	gateway        Gateway
	notifier       Notifier
	logger         zerolog.Logger
	gatewayTimeout time.Duration
}

func NewService(repo Repository, validator *Validator, gateway Gateway, logger zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		validator:      validator,
		gateway:        gateway,
		logger:         logger,
		gatewayTimeout: defaultGatewayTimeout,
	}
}

// SetNotifier attaches an optional lifecycle notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetGatewayTimeout overrides the per-call clearinghouse timeout.
func (s *Service) SetGatewayTimeout(d time.Duration) {
	if d > 0 {
		s.gatewayTimeout = d
	}
}

// -- Creation and reads --

// Create persists a new DRAFT claim from its service lines. The claim total
// is fixed to the sum of line amounts at creation time.
func (s *Service) Create(ctx context.Context, c *Claim, lines []*ServiceLine, userID *string) error {
	if c.ClaimType == "" {
		c.ClaimType = TypeOriginal
	}
	if !c.ClaimType.Valid() {
		return fmt.Errorf("invalid claim type: %s", c.ClaimType)
	}
	if c.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if c.PayerID == uuid.Nil {
		return fmt.Errorf("payer_id is required")
	}
	if len(lines) == 0 {
		return fmt.Errorf("at least one service line is required")
	}
	if c.ServiceStartDate.IsZero() || c.ServiceEndDate.IsZero() {
		return fmt.Errorf("service period is required")
	}
	if c.ServiceEndDate.Before(c.ServiceStartDate) {
		return fmt.Errorf("service_start_date must not be after service_end_date")
	}
	if c.ClaimType.RequiresOriginal() {
		if c.OriginalClaimID == nil {
			return fmt.Errorf("claims of type %s must reference an original claim", c.ClaimType)
		}
		orig, err := s.repo.GetByID(ctx, *c.OriginalClaimID)
		if err != nil {
			return err
		}
		if orig.ClientID != c.ClientID {
			return fmt.Errorf("original claim %s belongs to a different client", orig.ClaimNumber)
		}
	}

	c.TotalAmount = SumLineAmounts(lines)
	if c.TotalAmount < 0 {
		return fmt.Errorf("total amount must not be negative")
	}
	c.Status = StatusDraft
	if c.ClaimNumber == "" {
		c.ClaimNumber = newClaimNumber()
	}
	c.CreatedBy = userID
	c.UpdatedBy = userID

	for i, l := range lines {
		if l.Sequence == 0 {
			l.Sequence = i + 1
		}
		if l.ServiceCode == "" {
			return fmt.Errorf("service line %d: service_code is required", l.Sequence)
		}
	}

	entry := &StatusHistory{Status: StatusDraft, UserID: userID}
	return s.repo.Create(ctx, c, lines, entry)
}

func newClaimNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CLM-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByClaimNumber(ctx context.Context, claimNumber string) (*Claim, error) {
	return s.repo.GetByClaimNumber(ctx, claimNumber)
}

func (s *Service) Search(ctx context.Context, f Filter, limit, offset int) ([]*Claim, int, error) {
	return s.repo.Search(ctx, f, limit, offset)
}

func (s *Service) ServiceLines(ctx context.Context, claimID uuid.UUID) ([]*ServiceLine, error) {
	if _, err := s.repo.GetByID(ctx, claimID); err != nil {
		return nil, err
	}
	return s.repo.ServiceLines(ctx, claimID)
}

// Timeline returns the claim's full status history, oldest first.
func (s *Service) Timeline(ctx context.Context, claimID uuid.UUID) ([]*StatusHistory, error) {
	if _, err := s.repo.GetByID(ctx, claimID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, claimID)
}

// UpdateDraft persists field edits on a claim still in DRAFT. Claims past
// DRAFT are mutated only through the state machine.
func (s *Service) UpdateDraft(ctx context.Context, c *Claim, userID *string) error {
	current, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return &StateConflictError{ClaimID: c.ID, Current: current.Status, Action: "update"}
	}
	if c.ServiceEndDate.Before(c.ServiceStartDate) {
		return fmt.Errorf("service_start_date must not be after service_end_date")
	}
	if c.TotalAmount < 0 {
		return fmt.Errorf("total amount must not be negative")
	}
	c.Status = current.Status
	c.ClaimNumber = current.ClaimNumber
	c.ClaimType = current.ClaimType
	c.Version = current.Version
	c.UpdatedBy = userID
	return s.repo.Update(ctx, c)
}

// -- Validation --

// Validate evaluates the claim's current snapshot. It is idempotent and never
// changes stored state.
func (s *Service) Validate(ctx context.Context, claimID uuid.UUID) (*ValidationResult, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ServiceLines(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, c, lines, time.Now().UTC())
}

// MarkValidated runs validation and, on a clean pass, moves DRAFT → VALIDATED.
func (s *Service) MarkValidated(ctx context.Context, claimID uuid.UUID, userID *string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, StatusValidated) {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "validate"}
	}
	lines, err := s.repo.ServiceLines(ctx, claimID)
	if err != nil {
		return nil, err
	}
	result, err := s.validator.Validate(ctx, c, lines, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &ValidationFailedError{Result: result}
	}
	if err := s.transition(ctx, c, StatusValidated, nil, userID, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// BatchValidate evaluates each claim independently; one claim's failure never
// stops evaluation of the others.
func (s *Service) BatchValidate(ctx context.Context, claimIDs []uuid.UUID) (*BatchResult, []*ValidationResult, error) {
	batch := &BatchResult{}
	results := make([]*ValidationResult, 0, len(claimIDs))
	for _, id := range claimIDs {
		if err := ctx.Err(); err != nil {
			return batch, results, err
		}
		result, err := s.Validate(ctx, id)
		if err != nil {
			batch.recordError(id, err)
			continue
		}
		batch.recordSuccess(id)
		results = append(results, result)
	}
	return batch, results, nil
}

// -- Submission --

// Submit transmits a VALIDATED claim to the clearinghouse and, on success,
// moves it to SUBMITTED. Adapter failure surfaces as an IntegrationError and
// leaves the claim VALIDATED: submission is all-or-nothing per claim.
func (s *Service) Submit(ctx context.Context, claimID uuid.UUID, method SubmissionMethod, date time.Time, userID *string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusValidated {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "submit"}
	}
	return s.transmit(ctx, c, method, date, userID)
}

// SubmitWithValidation validates a DRAFT claim and submits it in one call.
// Claims already VALIDATED skip straight to submission.
func (s *Service) SubmitWithValidation(ctx context.Context, claimID uuid.UUID, method SubmissionMethod, date time.Time, userID *string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusDraft {
		if c, err = s.MarkValidated(ctx, claimID, userID); err != nil {
			return nil, err
		}
	}
	if c.Status != StatusValidated {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "submit"}
	}
	return s.transmit(ctx, c, method, date, userID)
}

// Resubmit re-enters SUBMITTED from DENIED or APPEALED under the same claim
// identity, clearing the prior adjudication outcome. Corrections that change
// claim content go through an adjustment claim instead.
func (s *Service) Resubmit(ctx context.Context, claimID uuid.UUID, method SubmissionMethod, date time.Time, userID *string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDenied && c.Status != StatusAppealed {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "resubmit"}
	}
	return s.transmit(ctx, c, method, date, userID)
}

// transmit performs the gateway call and the transition to SUBMITTED.
func (s *Service) transmit(ctx context.Context, c *Claim, method SubmissionMethod, date time.Time, userID *string) (*Claim, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("invalid submission method: %s", method)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("submission date is required")
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	lines, err := s.repo.ServiceLines(gctx, c.ID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.gateway.Submit(gctx, c, lines)
	if err != nil {
		ierr := &IntegrationError{Op: "submit", Err: err}
		s.logger.Error().Err(err).Str("claim_id", c.ID.String()).Str("claim_number", c.ClaimNumber).
			Msg("clearinghouse submission failed")
		if s.notifier != nil {
			s.notifier.SubmissionFailed(ctx, c, err.Error())
		}
		return nil, ierr
	}

	err = s.transition(ctx, c, StatusSubmitted, nil, userID, func(cl *Claim) {
		cl.SubmissionDate = &date
		cl.SubmissionMethod = &method
		if receipt != nil && receipt.ExternalClaimID != "" {
			cl.ExternalClaimID = &receipt.ExternalClaimID
		}
		cl.AdjudicationDate = nil
		cl.DenialReason = nil
		cl.DenialDetails = nil
		cl.AdjustmentCodes = nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("claim_id", c.ID.String()).Str("claim_number", c.ClaimNumber).
		Str("method", string(method)).Msg("claim submitted")
	if s.notifier != nil {
		s.notifier.ClaimSubmitted(ctx, c)
	}
	return c, nil
}

// BatchSubmit submits each claim independently. maxItems > 0 caps how many
// claims this invocation touches; a cancelled context stops between claims,
// never mid-claim.
func (s *Service) BatchSubmit(ctx context.Context, claimIDs []uuid.UUID, method SubmissionMethod, date time.Time, userID *string, maxItems int) (*BatchResult, error) {
	batch := &BatchResult{}
	for _, id := range claimIDs {
		if err := ctx.Err(); err != nil {
			break
		}
		if maxItems > 0 && batch.TotalProcessed >= maxItems {
			break
		}
		if _, err := s.SubmitWithValidation(ctx, id, method, date, userID); err != nil {
			batch.recordError(id, err)
			continue
		}
		batch.recordSuccess(id)
	}
	if s.notifier != nil {
		s.notifier.BatchCompleted(ctx, "submit", batch)
	}
	return batch, nil
}

// -- Clearinghouse status refresh --

// RefreshStatus asks the clearinghouse for the payer-side status of a
// submitted claim and feeds the answer through the state machine.
func (s *Service) RefreshStatus(ctx context.Context, claimID uuid.UUID) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !c.Status.IsPostSubmission() || c.Status.IsTerminal() {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "refresh status"}
	}
	if c.ExternalClaimID == nil {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "refresh status without external claim id"}
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	remote, err := s.gateway.FetchStatus(gctx, *c.ExternalClaimID)
	if err != nil {
		return nil, &IntegrationError{Op: "fetch status", Err: err}
	}
	if remote.Status == c.Status {
		return c, nil
	}
	if !remote.Status.Valid() || !CanTransition(c.Status, remote.Status) {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status,
			Action: fmt.Sprintf("apply payer status %s", remote.Status)}
	}

	err = s.transition(ctx, c, remote.Status, nil, nil, func(cl *Claim) {
		applyAdjudication(cl, remote.Status, remote.AdjudicationDate, remote.DenialReason, remote.DenialDetails)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// BatchRefreshStatus refreshes each claim independently.
func (s *Service) BatchRefreshStatus(ctx context.Context, claimIDs []uuid.UUID, maxItems int) (*BatchResult, error) {
	batch := &BatchResult{}
	for _, id := range claimIDs {
		if err := ctx.Err(); err != nil {
			break
		}
		if maxItems > 0 && batch.TotalProcessed >= maxItems {
			break
		}
		if _, err := s.RefreshStatus(ctx, id); err != nil {
			batch.recordError(id, err)
			continue
		}
		batch.recordSuccess(id)
	}
	return batch, nil
}

// RecordAdjudication applies a payer decision reported out-of-band (e.g. by
// the remittance processor) to a claim awaiting adjudication.
func (s *Service) RecordAdjudication(ctx context.Context, claimID uuid.UUID, outcome ClaimStatus, adjudicationDate time.Time, denialReason *DenialReason, denialDetails *string, userID *string) (*Claim, error) {
	if outcome != StatusPaid && outcome != StatusPartialPaid && outcome != StatusDenied {
		return nil, fmt.Errorf("invalid adjudication outcome: %s", outcome)
	}
	if adjudicationDate.IsZero() {
		return nil, fmt.Errorf("adjudication date is required")
	}
	if outcome == StatusDenied && (denialReason == nil || !denialReason.Valid()) {
		return nil, fmt.Errorf("a valid denial reason is required for a denial")
	}
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, outcome) {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "record adjudication"}
	}
	err = s.transition(ctx, c, outcome, denialDetails, userID, func(cl *Claim) {
		applyAdjudication(cl, outcome, &adjudicationDate, denialReason, denialDetails)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// applyAdjudication sets the adjudication side effects for a payer decision.
func applyAdjudication(c *Claim, outcome ClaimStatus, date *time.Time, reason *DenialReason, details *string) {
	if date != nil {
		c.AdjudicationDate = date
	}
	if outcome == StatusDenied {
		if reason != nil {
			c.DenialReason = reason
		} else {
			r := DenialOther
			c.DenialReason = &r
		}
		c.DenialDetails = details
	}
}

// -- Lifecycle actions --

// Void moves any non-terminal claim to VOID. The claim becomes permanently
// read-only; VOID is the terminal soft delete.
func (s *Service) Void(ctx context.Context, claimID uuid.UUID, notes string, userID *string) (*Claim, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("a void reason is required")
	}
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, StatusVoid) {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "void"}
	}
	if err := s.transition(ctx, c, StatusVoid, &notes, userID, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Appeal moves a DENIED claim to APPEALED. The claim total never changes on
// appeal.
func (s *Service) Appeal(ctx context.Context, claimID uuid.UUID, reason string, supportingDocs []string, userID *string) (*Claim, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("an appeal reason is required")
	}
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDenied {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "appeal"}
	}
	notes := reason
	if len(supportingDocs) > 0 {
		notes = fmt.Sprintf("%s (supporting documents: %s)", reason, strings.Join(supportingDocs, ", "))
	}
	err = s.transition(ctx, c, StatusAppealed, &notes, userID, func(cl *Claim) {
		cl.AppealReason = &reason
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ResolveAppeal records the outcome of appeal review: PAID, PARTIAL_PAID or
// FINAL_DENIED. Paid outcomes update the adjudication date to the resolution
// date.
func (s *Service) ResolveAppeal(ctx context.Context, claimID uuid.UUID, outcome ClaimStatus, resolutionDate time.Time, denialDetails *string, userID *string) (*Claim, error) {
	if outcome != StatusPaid && outcome != StatusPartialPaid && outcome != StatusFinalDenied {
		return nil, fmt.Errorf("invalid appeal outcome: %s", outcome)
	}
	if resolutionDate.IsZero() {
		return nil, fmt.Errorf("resolution date is required")
	}
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusAppealed {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "resolve appeal"}
	}
	err = s.transition(ctx, c, outcome, denialDetails, userID, func(cl *Claim) {
		if outcome == StatusPaid || outcome == StatusPartialPaid {
			cl.AdjudicationDate = &resolutionDate
		}
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AppealResolved(ctx, c)
	}
	return c, nil
}

// FinalDeny closes a DENIED claim without an appeal. Caller-invoked policy
// decision, never automatic.
func (s *Service) FinalDeny(ctx context.Context, claimID uuid.UUID, notes *string, userID *string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDenied {
		return nil, &StateConflictError{ClaimID: claimID, Current: c.Status, Action: "final deny"}
	}
	if err := s.transition(ctx, c, StatusFinalDenied, notes, userID, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateAdjustment creates a new DRAFT claim of type ADJUSTMENT or
// REPLACEMENT referencing the original. The original claim's status is never
// touched.
func (s *Service) CreateAdjustment(ctx context.Context, originalClaimID uuid.UUID, c *Claim, lines []*ServiceLine, userID *string) (*Claim, error) {
	orig, err := s.repo.GetByID(ctx, originalClaimID)
	if err != nil {
		return nil, err
	}
	switch orig.Status {
	case StatusPaid, StatusPartialPaid, StatusDenied:
	default:
		return nil, &StateConflictError{ClaimID: originalClaimID, Current: orig.Status, Action: "adjust"}
	}
	if c.ClaimType == "" {
		c.ClaimType = TypeAdjustment
	}
	if c.ClaimType != TypeAdjustment && c.ClaimType != TypeReplacement {
		return nil, fmt.Errorf("adjustment claims must be of type %s or %s", TypeAdjustment, TypeReplacement)
	}
	c.OriginalClaimID = &originalClaimID
	if c.ClientID == uuid.Nil {
		c.ClientID = orig.ClientID
	}
	if c.PayerID == uuid.Nil {
		c.PayerID = orig.PayerID
	}
	if err := s.Create(ctx, c, lines, userID); err != nil {
		return nil, err
	}
	return c, nil
}

// transition applies the state-machine edge check, the optional field
// mutations, and the atomic persist of status + history. On persistence
// failure the in-memory claim is restored so callers never observe a status
// the store does not hold.
func (s *Service) transition(ctx context.Context, c *Claim, to ClaimStatus, notes *string, userID *string, mutate func(*Claim)) error {
	if !CanTransition(c.Status, to) {
		return &StateConflictError{ClaimID: c.ID, Current: c.Status, Action: "transition to " + string(to)}
	}
	snapshot := *c
	if mutate != nil {
		mutate(c)
	}
	c.Status = to
	c.UpdatedBy = userID
	entry := &StatusHistory{ClaimID: c.ID, Status: to, Notes: notes, UserID: userID}
	if err := s.repo.Transition(ctx, c, entry); err != nil {
		*c = snapshot
		return err
	}
	return nil
}
