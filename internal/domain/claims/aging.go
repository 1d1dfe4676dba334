package claims

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AgingBucket groups open claims by days outstanding. Upper == 0 on the last
// bucket means unbounded ("90+").
type AgingBucket struct {
	Range  string `json:"range"`
	Lower  int    `json:"lower"`
	Upper  int    `json:"upper,omitempty"`
	Count  int    `json:"count"`
	Amount Cents  `json:"amount"`
}

// AgingReport is the receivables aging view over open claims, optionally
// broken down per payer.
type AgingReport struct {
	AsOf        time.Time                  `json:"as_of"`
	TotalCount  int                        `json:"total_count"`
	TotalAmount Cents                      `json:"total_amount"`
	Buckets     []*AgingBucket             `json:"buckets"`
	ByPayer     map[uuid.UUID]*PayerAging  `json:"by_payer,omitempty"`
}

// PayerAging is one payer's slice of the aging report.
type PayerAging struct {
	PayerID     uuid.UUID      `json:"payer_id"`
	TotalCount  int            `json:"total_count"`
	TotalAmount Cents          `json:"total_amount"`
	Buckets     []*AgingBucket `json:"buckets"`
}

// ClaimMetrics summarizes submission outcomes over a query window.
type ClaimMetrics struct {
	From                  time.Time `json:"from"`
	To                    time.Time `json:"to"`
	SubmittedCount        int       `json:"submitted_count"`
	DeniedCount           int       `json:"denied_count"`
	AdjudicatedCount      int       `json:"adjudicated_count"`
	DenialRate            float64   `json:"denial_rate"`
	AvgProcessingTimeDays float64   `json:"avg_processing_time_days"`
}

// DefaultAgingBoundaries yields the conventional 0-30/31-60/61-90/90+ split.
var DefaultAgingBoundaries = []int{30, 60, 90}

// newBuckets builds empty buckets from ascending day boundaries, plus a
// trailing open-ended bucket.
func newBuckets(boundaries []int) []*AgingBucket {
	buckets := make([]*AgingBucket, 0, len(boundaries)+1)
	lower := 0
	for _, upper := range boundaries {
		buckets = append(buckets, &AgingBucket{
			Range: fmt.Sprintf("%d-%d", lower, upper),
			Lower: lower,
			Upper: upper,
		})
		lower = upper + 1
	}
	buckets = append(buckets, &AgingBucket{
		Range: fmt.Sprintf("%d+", lower),
		Lower: lower,
	})
	return buckets
}

func placeInBucket(buckets []*AgingBucket, days int, amount Cents) {
	if days < 0 {
		days = 0
	}
	for _, b := range buckets {
		open := b.Upper == 0 && b.Lower > 0
		if days >= b.Lower && (open || days <= b.Upper) {
			b.Count++
			b.Amount += amount
			return
		}
	}
}

// claimAgeDays uses the submission date once the claim has been submitted,
// the service end date before that.
func claimAgeDays(row *AgingRow, asOf time.Time) int {
	anchor := row.ServiceEndDate
	if row.SubmissionDate != nil {
		anchor = *row.SubmissionDate
	}
	return int(asOf.Sub(anchor).Hours() / 24)
}

// AgingReport buckets open (non-terminal, non-VOID) claims by days
// outstanding. boundaries nil means DefaultAgingBoundaries; byPayer adds a
// per-payer breakdown.
func (s *Service) AgingReport(ctx context.Context, asOf time.Time, boundaries []int, byPayer bool) (*AgingReport, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	if len(boundaries) == 0 {
		boundaries = DefaultAgingBoundaries
	}
	if !sort.IntsAreSorted(boundaries) {
		return nil, fmt.Errorf("aging boundaries must be ascending")
	}

	rows, err := s.repo.AgingRows(ctx)
	if err != nil {
		return nil, err
	}

	report := &AgingReport{AsOf: asOf, Buckets: newBuckets(boundaries)}
	if byPayer {
		report.ByPayer = make(map[uuid.UUID]*PayerAging)
	}
	for _, row := range rows {
		days := claimAgeDays(row, asOf)
		placeInBucket(report.Buckets, days, row.TotalAmount)
		report.TotalCount++
		report.TotalAmount += row.TotalAmount
		if byPayer {
			pa, ok := report.ByPayer[row.PayerID]
			if !ok {
				pa = &PayerAging{PayerID: row.PayerID, Buckets: newBuckets(boundaries)}
				report.ByPayer[row.PayerID] = pa
			}
			placeInBucket(pa.Buckets, days, row.TotalAmount)
			pa.TotalCount++
			pa.TotalAmount += row.TotalAmount
		}
	}
	return report, nil
}

// Metrics computes the denial rate and the average processing time over
// claims submitted within [from, to]. Denial rate counts claims that ever
// reached DENIED or FINAL_DENIED against all submitted claims; processing
// time averages adjudicationDate − submissionDate over adjudicated claims.
func (s *Service) Metrics(ctx context.Context, from, to time.Time) (*ClaimMetrics, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("metrics window end must not precede its start")
	}
	rows, err := s.repo.MetricsRows(ctx, from, to)
	if err != nil {
		return nil, err
	}

	m := &ClaimMetrics{From: from, To: to}
	var totalProcessing time.Duration
	for _, row := range rows {
		m.SubmittedCount++
		if row.EverDenied {
			m.DeniedCount++
		}
		if row.AdjudicationDate != nil {
			m.AdjudicatedCount++
			totalProcessing += row.AdjudicationDate.Sub(row.SubmissionDate)
		}
	}
	if m.SubmittedCount > 0 {
		m.DenialRate = float64(m.DeniedCount) / float64(m.SubmittedCount)
	}
	if m.AdjudicatedCount > 0 {
		m.AvgProcessingTimeDays = totalProcessing.Hours() / 24 / float64(m.AdjudicatedCount)
	}
	return m, nil
}
