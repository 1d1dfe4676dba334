package clearinghouse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/revcycle/claims/internal/domain/claims"
)

func testClaim() (*claims.Claim, []*claims.ServiceLine) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	c := &claims.Claim{
		ID:               uuid.New(),
		ClaimNumber:      "CLM-20260110-ABCD1234",
		ClientID:         uuid.New(),
		PayerID:          uuid.New(),
		ClaimType:        claims.TypeOriginal,
		TotalAmount:      15000,
		ServiceStartDate: start,
		ServiceEndDate:   end,
	}
	lines := []*claims.ServiceLine{
		{Sequence: 1, ServiceCode: "H2014", ServiceDate: start, Units: 4, Amount: 10000},
		{Sequence: 2, ServiceCode: "T1017", ServiceDate: end, Units: 2, Amount: 5000},
	}
	return c, lines
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		SourceID: "unit-test",
	}, zerolog.New(io.Discard))
}

func TestClient_Submit(t *testing.T) {
	var gotPayload submitPayload
	var gotAuth, gotSource string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/claims" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotSource = r.Header.Get("X-Source-ID")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		json.NewEncoder(w).Encode(submitResponse{ExternalClaimID: "EXT-789", Accepted: true})
	}))
	defer srv.Close()

	c, lines := testClaim()
	receipt, err := newTestClient(srv).Submit(context.Background(), c, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.ExternalClaimID != "EXT-789" {
		t.Errorf("external claim id = %q, want EXT-789", receipt.ExternalClaimID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if gotSource != "unit-test" {
		t.Errorf("source header = %q", gotSource)
	}
	if gotPayload.ClaimNumber != c.ClaimNumber || len(gotPayload.Lines) != 2 {
		t.Errorf("payload = %+v, want the claim and both lines", gotPayload)
	}
	if gotPayload.ServiceStartDate != "2026-01-05" {
		t.Errorf("service start = %q, want wire-format date", gotPayload.ServiceStartDate)
	}
}

func TestClient_Submit_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{Accepted: false, Message: "unknown payer"})
	}))
	defer srv.Close()

	c, lines := testClaim()
	if _, err := newTestClient(srv).Submit(context.Background(), c, lines); err == nil {
		t.Fatal("expected error for a rejected claim")
	}
}

func TestClient_Submit_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, lines := testClaim()
	if _, err := newTestClient(srv).Submit(context.Background(), c, lines); err == nil {
		t.Fatal("expected error for a 500 response")
	}
}

func TestClient_FetchStatus(t *testing.T) {
	adjudicated := "2026-02-10"
	reason := "TIMELY_FILING"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/claims/EXT-789/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(statusResponse{
			Status: "DENIED", AdjudicationDate: &adjudicated, DenialReason: &reason,
		})
	}))
	defer srv.Close()

	got, err := newTestClient(srv).FetchStatus(context.Background(), "EXT-789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != claims.StatusDenied {
		t.Errorf("status = %s, want DENIED", got.Status)
	}
	if got.DenialReason == nil || *got.DenialReason != claims.DenialTimelyFiling {
		t.Error("the denial reason should be mapped onto the domain set")
	}
	if got.AdjudicationDate == nil || got.AdjudicationDate.Format("2006-01-02") != adjudicated {
		t.Error("the adjudication date should be parsed")
	}
}

func TestClient_FetchStatus_UnknownDenialReasonFallsBack(t *testing.T) {
	reason := "CODE_47"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{Status: "DENIED", DenialReason: &reason})
	}))
	defer srv.Close()

	got, err := newTestClient(srv).FetchStatus(context.Background(), "EXT-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DenialReason == nil || *got.DenialReason != claims.DenialOther {
		t.Error("an unrecognized denial reason should map to OTHER")
	}
}

func TestClient_FetchStatus_UnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{Status: "IN_LIMBO"})
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).FetchStatus(context.Background(), "EXT-1"); err == nil {
		t.Fatal("expected error for an unrecognized remote status")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c, lines := testClaim()
	if _, err := newTestClient(srv).Submit(ctx, c, lines); err == nil {
		t.Fatal("expected error when the context deadline expires")
	}
}
