package refdata

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/revcycle/claims/internal/domain/claims"
)

// -- Mock Repository --

type mockRepo struct {
	payers  map[uuid.UUID]*Payer
	clients map[uuid.UUID]*Client
	codes   map[string]*ProcedureCode
	auths   map[uuid.UUID]*Authorization
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		payers:  make(map[uuid.UUID]*Payer),
		clients: make(map[uuid.UUID]*Client),
		codes:   make(map[string]*ProcedureCode),
		auths:   make(map[uuid.UUID]*Authorization),
	}
}

func (m *mockRepo) GetPayer(_ context.Context, id uuid.UUID) (*Payer, error) {
	return m.payers[id], nil
}

func (m *mockRepo) ListPayers(_ context.Context, activeOnly bool, limit, offset int) ([]*Payer, int, error) {
	var out []*Payer
	for _, p := range m.payers {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) CreatePayer(_ context.Context, p *Payer) error {
	p.ID = uuid.New()
	m.payers[p.ID] = p
	return nil
}

func (m *mockRepo) UpdatePayer(_ context.Context, p *Payer) error {
	m.payers[p.ID] = p
	return nil
}

func (m *mockRepo) GetClient(_ context.Context, id uuid.UUID) (*Client, error) {
	return m.clients[id], nil
}

func (m *mockRepo) CreateClient(_ context.Context, cl *Client) error {
	cl.ID = uuid.New()
	m.clients[cl.ID] = cl
	return nil
}

func (m *mockRepo) GetProcedureCode(_ context.Context, code string) (*ProcedureCode, error) {
	return m.codes[code], nil
}

func (m *mockRepo) CreateProcedureCode(_ context.Context, pc *ProcedureCode) error {
	pc.ID = uuid.New()
	m.codes[pc.Code] = pc
	return nil
}

func (m *mockRepo) FindAuthorizations(_ context.Context, clientID, payerID uuid.UUID, serviceCode string) ([]*Authorization, error) {
	var out []*Authorization
	for _, a := range m.auths {
		if a.ClientID == clientID && a.PayerID == payerID && a.ServiceCode == serviceCode && a.RevokedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateAuthorization(_ context.Context, a *Authorization) error {
	a.ID = uuid.New()
	m.auths[a.ID] = a
	return nil
}

func (m *mockRepo) RevokeAuthorization(_ context.Context, id uuid.UUID, at time.Time) error {
	if a, ok := m.auths[id]; ok {
		a.RevokedAt = &at
	}
	return nil
}

func date(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// -- Directory bridging --

func TestService_GetPayer(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := &Payer{Name: "Acme Health", PayerCode: "ACME", Active: true, TimelyFilingDays: 90, RequiresAuthorization: true}
	if err := svc.CreatePayer(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := svc.GetPayer(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.Name != "Acme Health" || info.TimelyFilingDays != 90 || !info.RequiresAuthorization {
		t.Errorf("payer info = %+v, want the stored payer's fields", info)
	}

	missing, err := svc.GetPayer(context.Background(), uuid.New())
	if err != nil || missing != nil {
		t.Error("a missing payer must be (nil, nil)")
	}
}

func TestService_GetClient(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	cl := &Client{FirstName: "Dana", LastName: "Reed", Active: true}
	if err := svc.CreateClient(context.Background(), cl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := svc.GetClient(context.Background(), cl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || !info.Active {
		t.Errorf("client info = %+v, want an active client", info)
	}

	missing, err := svc.GetClient(context.Background(), uuid.New())
	if err != nil || missing != nil {
		t.Error("a missing client must be (nil, nil)")
	}
}

func TestService_IsActiveCode(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	to := date(2026, 12, 31)
	code := &ProcedureCode{
		Code: "H2014", Description: "Skills training", Active: true,
		EffectiveFrom: date(2025, 1, 1), EffectiveTo: &to,
	}
	if err := svc.CreateProcedureCode(context.Background(), code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside the effective window", date(2026, 1, 5), date(2026, 1, 9), true},
		{"starts before effective_from", date(2024, 12, 1), date(2026, 1, 9), false},
		{"ends after effective_to", date(2026, 12, 1), date(2027, 1, 15), false},
	}
	for _, tt := range tests {
		got, err := svc.IsActiveCode(context.Background(), "H2014", tt.start, tt.end)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: IsActiveCode = %v, want %v", tt.name, got, tt.want)
		}
	}

	if got, _ := svc.IsActiveCode(context.Background(), "UNKNOWN", date(2026, 1, 1), date(2026, 1, 2)); got {
		t.Error("an unknown code must not be active")
	}

	code.Active = false
	if got, _ := svc.IsActiveCode(context.Background(), "H2014", date(2026, 1, 5), date(2026, 1, 9)); got {
		t.Error("a deactivated code must not be active")
	}
}

func TestService_IsActiveCode_OpenEnded(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	code := &ProcedureCode{Code: "T1017", Description: "Targeted case management", Active: true, EffectiveFrom: date(2020, 1, 1)}
	if err := svc.CreateProcedureCode(context.Background(), code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.IsActiveCode(context.Background(), "T1017", date(2026, 1, 1), date(2030, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("a nil effective_to means the code never expires")
	}
}

func TestService_CheckAuthorization(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	clientID, payerID := uuid.New(), uuid.New()

	status, err := svc.CheckAuthorization(context.Background(), clientID, payerID, "H2014", date(2026, 1, 5), date(2026, 1, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != claims.AuthorizationMissing {
		t.Errorf("status = %s, want MISSING with nothing on file", status)
	}

	auth := &Authorization{
		ClientID: clientID, PayerID: payerID, ServiceCode: "H2014",
		AuthorizationNo: "AUTH-001", StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 7),
	}
	if err := svc.CreateAuthorization(context.Background(), auth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The authorization expires mid-period.
	status, err = svc.CheckAuthorization(context.Background(), clientID, payerID, "H2014", date(2026, 1, 5), date(2026, 1, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != claims.AuthorizationExpired {
		t.Errorf("status = %s, want EXPIRED when no authorization spans the period", status)
	}

	// Covered once a spanning authorization exists.
	second := &Authorization{
		ClientID: clientID, PayerID: payerID, ServiceCode: "H2014",
		AuthorizationNo: "AUTH-002", StartDate: date(2026, 1, 1), EndDate: date(2026, 3, 31),
	}
	if err := svc.CreateAuthorization(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status, err = svc.CheckAuthorization(context.Background(), clientID, payerID, "H2014", date(2026, 1, 5), date(2026, 1, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != claims.AuthorizationGranted {
		t.Errorf("status = %s, want GRANTED", status)
	}

	// Revocation removes coverage.
	if err := svc.RevokeAuthorization(context.Background(), second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status, _ = svc.CheckAuthorization(context.Background(), clientID, payerID, "H2014", date(2026, 1, 5), date(2026, 1, 9))
	if status == claims.AuthorizationGranted {
		t.Error("a revoked authorization must not grant coverage")
	}
}

func TestAuthorization_Covers(t *testing.T) {
	a := &Authorization{StartDate: date(2026, 1, 1), EndDate: date(2026, 3, 31)}
	if !a.Covers(date(2026, 1, 1), date(2026, 3, 31)) {
		t.Error("boundary dates are covered")
	}
	if a.Covers(date(2025, 12, 31), date(2026, 1, 15)) {
		t.Error("a period starting before the authorization is not covered")
	}
	revoked := date(2026, 2, 1)
	a.RevokedAt = &revoked
	if a.Covers(date(2026, 1, 5), date(2026, 1, 9)) {
		t.Error("a revoked authorization covers nothing")
	}
}

// -- Maintenance validation --

func TestService_CreatePayer_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.CreatePayer(context.Background(), &Payer{Name: "  "}); err == nil {
		t.Error("expected error for a payer without a name")
	}
	if err := svc.CreatePayer(context.Background(), &Payer{Name: "Acme", TimelyFilingDays: -1}); err == nil {
		t.Error("expected error for negative timely_filing_days")
	}
}

func TestService_CreateClient_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.CreateClient(context.Background(), &Client{FirstName: "Dana"}); err == nil {
		t.Error("expected error for a client without a last name")
	}
}

func TestService_CreateProcedureCode_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.CreateProcedureCode(context.Background(), &ProcedureCode{Description: "no code"}); err == nil {
		t.Error("expected error for a procedure without a code")
	}
	if err := svc.CreateProcedureCode(context.Background(), &ProcedureCode{Code: "H2014"}); err == nil {
		t.Error("expected error for a procedure without effective_from")
	}
}

func TestService_CreateAuthorization_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.CreateAuthorization(context.Background(), &Authorization{ServiceCode: "H2014"}); err == nil {
		t.Error("expected error without client and payer")
	}
	a := &Authorization{
		ClientID: uuid.New(), PayerID: uuid.New(), ServiceCode: "H2014",
		StartDate: date(2026, 2, 1), EndDate: date(2026, 1, 1),
	}
	if err := svc.CreateAuthorization(context.Background(), a); err == nil {
		t.Error("expected error for an inverted date range")
	}
}
