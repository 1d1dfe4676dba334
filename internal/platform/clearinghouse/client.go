// Package clearinghouse is the HTTP adapter for the external claim
// clearinghouse. It implements the claims.Gateway contract; every call is
// bounded by the caller's context and a failure never mutates stored claim
// state.
package clearinghouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/revcycle/claims/internal/domain/claims"
)

type Config struct {
	BaseURL  string
	APIKey   string
	SourceID string
	Timeout  time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// wire payloads

type submitLine struct {
	Sequence    int    `json:"sequence"`
	ServiceCode string `json:"service_code"`
	ServiceDate string `json:"service_date"`
	Units       int    `json:"units"`
	AmountCents int64  `json:"amount_cents"`
}

type submitPayload struct {
	ClaimNumber      string       `json:"claim_number"`
	ClientID         string       `json:"client_id"`
	PayerID          string       `json:"payer_id"`
	ClaimType        string       `json:"claim_type"`
	ServiceStartDate string       `json:"service_start_date"`
	ServiceEndDate   string       `json:"service_end_date"`
	TotalAmountCents int64        `json:"total_amount_cents"`
	OriginalClaimID  *string      `json:"original_claim_id,omitempty"`
	Lines            []submitLine `json:"lines"`
}

type submitResponse struct {
	ExternalClaimID string `json:"external_claim_id"`
	Accepted        bool   `json:"accepted"`
	Message         string `json:"message"`
}

type statusResponse struct {
	Status           string  `json:"status"`
	AdjudicationDate *string `json:"adjudication_date,omitempty"`
	DenialReason     *string `json:"denial_reason,omitempty"`
	DenialDetails    *string `json:"denial_details,omitempty"`
}

const dateLayout = "2006-01-02"

// Submit transmits the claim to the clearinghouse and returns its receipt.
func (c *Client) Submit(ctx context.Context, cl *claims.Claim, lines []*claims.ServiceLine) (*claims.GatewayReceipt, error) {
	payload := submitPayload{
		ClaimNumber:      cl.ClaimNumber,
		ClientID:         cl.ClientID.String(),
		PayerID:          cl.PayerID.String(),
		ClaimType:        string(cl.ClaimType),
		ServiceStartDate: cl.ServiceStartDate.Format(dateLayout),
		ServiceEndDate:   cl.ServiceEndDate.Format(dateLayout),
		TotalAmountCents: int64(cl.TotalAmount),
	}
	if cl.OriginalClaimID != nil {
		s := cl.OriginalClaimID.String()
		payload.OriginalClaimID = &s
	}
	for _, l := range lines {
		payload.Lines = append(payload.Lines, submitLine{
			Sequence:    l.Sequence,
			ServiceCode: l.ServiceCode,
			ServiceDate: l.ServiceDate.Format(dateLayout),
			Units:       l.Units,
			AmountCents: int64(l.Amount),
		})
	}

	var resp submitResponse
	if err := c.post(ctx, "/api/v1/claims", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Accepted {
		return nil, fmt.Errorf("claim %s rejected by clearinghouse: %s", cl.ClaimNumber, resp.Message)
	}
	c.logger.Info().Str("claim_number", cl.ClaimNumber).
		Str("external_claim_id", resp.ExternalClaimID).Msg("claim accepted by clearinghouse")
	return &claims.GatewayReceipt{ExternalClaimID: resp.ExternalClaimID}, nil
}

// FetchStatus retrieves the payer-side status of a previously accepted claim.
func (c *Client) FetchStatus(ctx context.Context, externalClaimID string) (*claims.GatewayStatus, error) {
	var resp statusResponse
	if err := c.get(ctx, "/api/v1/claims/"+externalClaimID+"/status", &resp); err != nil {
		return nil, err
	}

	out := &claims.GatewayStatus{Status: claims.ClaimStatus(resp.Status)}
	if !out.Status.Valid() {
		return nil, fmt.Errorf("clearinghouse reported unknown status %q", resp.Status)
	}
	if resp.AdjudicationDate != nil {
		t, err := time.Parse(dateLayout, *resp.AdjudicationDate)
		if err != nil {
			return nil, fmt.Errorf("parse adjudication date %q: %w", *resp.AdjudicationDate, err)
		}
		out.AdjudicationDate = &t
	}
	if resp.DenialReason != nil {
		r := claims.DenialReason(*resp.DenialReason)
		if !r.Valid() {
			r = claims.DenialOther
		}
		out.DenialReason = &r
	}
	out.DenialDetails = resp.DenialDetails
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.SourceID != "" {
		req.Header.Set("X-Source-ID", c.cfg.SourceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(body, 256))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
