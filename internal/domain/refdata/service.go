package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/revcycle/claims/internal/domain/claims"
)

// Service exposes reference data to the rest of the engine. It satisfies the
// claims package's PayerDirectory, ClientDirectory, CodeRegistry and
// AuthorizationChecker contracts.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetPayer implements claims.PayerDirectory. A missing payer is (nil, nil).
func (s *Service) GetPayer(ctx context.Context, id uuid.UUID) (*claims.PayerInfo, error) {
	p, err := s.repo.GetPayer(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return &claims.PayerInfo{
		ID:                    p.ID,
		Name:                  p.Name,
		Active:                p.Active,
		TimelyFilingDays:      p.TimelyFilingDays,
		RequiresAuthorization: p.RequiresAuthorization,
	}, nil
}

// GetClient implements claims.ClientDirectory. A missing client is (nil, nil).
func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*claims.ClientInfo, error) {
	cl, err := s.repo.GetClient(ctx, id)
	if err != nil || cl == nil {
		return nil, err
	}
	return &claims.ClientInfo{ID: cl.ID, Active: cl.Active}, nil
}

// IsActiveCode implements claims.CodeRegistry: the code must exist, be
// active, and be effective across the whole service period.
func (s *Service) IsActiveCode(ctx context.Context, code string, start, end time.Time) (bool, error) {
	pc, err := s.repo.GetProcedureCode(ctx, code)
	if err != nil {
		return false, err
	}
	if pc == nil || !pc.Active {
		return false, nil
	}
	if start.Before(pc.EffectiveFrom) {
		return false, nil
	}
	if pc.EffectiveTo != nil && end.After(*pc.EffectiveTo) {
		return false, nil
	}
	return true, nil
}

// CheckAuthorization implements claims.AuthorizationChecker. EXPIRED is
// reported when authorizations exist but none covers the full period.
func (s *Service) CheckAuthorization(ctx context.Context, clientID, payerID uuid.UUID, serviceCode string, start, end time.Time) (claims.AuthorizationStatus, error) {
	auths, err := s.repo.FindAuthorizations(ctx, clientID, payerID, serviceCode)
	if err != nil {
		return "", err
	}
	if len(auths) == 0 {
		return claims.AuthorizationMissing, nil
	}
	for _, a := range auths {
		if a.Covers(start, end) {
			return claims.AuthorizationGranted, nil
		}
	}
	return claims.AuthorizationExpired, nil
}

// -- Reference-data maintenance --

func (s *Service) CreatePayer(ctx context.Context, p *Payer) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("payer name is required")
	}
	if p.TimelyFilingDays < 0 {
		return fmt.Errorf("timely_filing_days must not be negative")
	}
	return s.repo.CreatePayer(ctx, p)
}

func (s *Service) UpdatePayer(ctx context.Context, p *Payer) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("payer name is required")
	}
	return s.repo.UpdatePayer(ctx, p)
}

func (s *Service) ListPayers(ctx context.Context, activeOnly bool, limit, offset int) ([]*Payer, int, error) {
	return s.repo.ListPayers(ctx, activeOnly, limit, offset)
}

func (s *Service) Payer(ctx context.Context, id uuid.UUID) (*Payer, error) {
	return s.repo.GetPayer(ctx, id)
}

func (s *Service) CreateClient(ctx context.Context, cl *Client) error {
	if strings.TrimSpace(cl.LastName) == "" {
		return fmt.Errorf("client last name is required")
	}
	return s.repo.CreateClient(ctx, cl)
}

func (s *Service) Client(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.repo.GetClient(ctx, id)
}

func (s *Service) CreateProcedureCode(ctx context.Context, pc *ProcedureCode) error {
	if strings.TrimSpace(pc.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if pc.EffectiveFrom.IsZero() {
		return fmt.Errorf("effective_from is required")
	}
	return s.repo.CreateProcedureCode(ctx, pc)
}

func (s *Service) CreateAuthorization(ctx context.Context, a *Authorization) error {
	if a.ClientID == uuid.Nil || a.PayerID == uuid.Nil {
		return fmt.Errorf("client_id and payer_id are required")
	}
	if strings.TrimSpace(a.ServiceCode) == "" {
		return fmt.Errorf("service_code is required")
	}
	if a.EndDate.Before(a.StartDate) {
		return fmt.Errorf("start_date must not be after end_date")
	}
	return s.repo.CreateAuthorization(ctx, a)
}

func (s *Service) RevokeAuthorization(ctx context.Context, id uuid.UUID) error {
	return s.repo.RevokeAuthorization(ctx, id, time.Now().UTC())
}
