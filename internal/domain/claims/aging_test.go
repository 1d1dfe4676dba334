package claims

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewBuckets(t *testing.T) {
	buckets := newBuckets([]int{30, 60, 90})
	if len(buckets) != 4 {
		t.Fatalf("bucket count = %d, want 4", len(buckets))
	}
	wantRanges := []string{"0-30", "31-60", "61-90", "91+"}
	for i, want := range wantRanges {
		if buckets[i].Range != want {
			t.Errorf("bucket %d range = %q, want %q", i, buckets[i].Range, want)
		}
	}
	last := buckets[3]
	if last.Lower != 91 || last.Upper != 0 {
		t.Errorf("open bucket = [%d, %d], want lower 91 and unbounded upper", last.Lower, last.Upper)
	}
}

func TestPlaceInBucket(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "0-30"},
		{30, "0-30"},
		{31, "31-60"},
		{60, "31-60"},
		{61, "61-90"},
		{90, "61-90"},
		{91, "91+"},
		{400, "91+"},
		{-5, "0-30"}, // future-dated anchors clamp to day zero
	}
	for _, tt := range tests {
		buckets := newBuckets(DefaultAgingBoundaries)
		placeInBucket(buckets, tt.days, 1000)
		var placed string
		for _, b := range buckets {
			if b.Count == 1 {
				placed = b.Range
			}
		}
		if placed != tt.want {
			t.Errorf("days %d placed in %q, want %q", tt.days, placed, tt.want)
		}
	}
}

func TestClaimAgeDays(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	serviceEnd := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	submitted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	row := &AgingRow{ServiceEndDate: serviceEnd}
	if got := claimAgeDays(row, asOf); got != 59 {
		t.Errorf("unsubmitted age = %d days, want 59 (anchored on service end)", got)
	}

	row.SubmissionDate = &submitted
	if got := claimAgeDays(row, asOf); got != 28 {
		t.Errorf("submitted age = %d days, want 28 (anchored on submission)", got)
	}
}

func TestService_AgingReport(t *testing.T) {
	f := newServiceFixture()
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	payerA, payerB := uuid.New(), uuid.New()
	day := func(d int) *time.Time {
		t := asOf.AddDate(0, 0, -d)
		return &t
	}
	f.repo.agingRows = []*AgingRow{
		{ClaimID: uuid.New(), PayerID: payerA, TotalAmount: 10000, SubmissionDate: day(10)},
		{ClaimID: uuid.New(), PayerID: payerA, TotalAmount: 20000, SubmissionDate: day(45)},
		{ClaimID: uuid.New(), PayerID: payerB, TotalAmount: 5000, SubmissionDate: day(120)},
		{ClaimID: uuid.New(), PayerID: payerB, TotalAmount: 2500, ServiceEndDate: asOf.AddDate(0, 0, -70)},
	}

	report, err := f.svc.AgingReport(ctxTODO(), asOf, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalCount != 4 || report.TotalAmount != 37500 {
		t.Errorf("totals = %d claims / %d cents, want 4 / 37500", report.TotalCount, report.TotalAmount)
	}

	wantCounts := map[string]int{"0-30": 1, "31-60": 1, "61-90": 1, "91+": 1}
	for _, b := range report.Buckets {
		if b.Count != wantCounts[b.Range] {
			t.Errorf("bucket %s count = %d, want %d", b.Range, b.Count, wantCounts[b.Range])
		}
	}

	if len(report.ByPayer) != 2 {
		t.Fatalf("payer breakdown size = %d, want 2", len(report.ByPayer))
	}
	if pa := report.ByPayer[payerA]; pa.TotalCount != 2 || pa.TotalAmount != 30000 {
		t.Errorf("payer A = %d claims / %d cents, want 2 / 30000", pa.TotalCount, pa.TotalAmount)
	}
	if pb := report.ByPayer[payerB]; pb.TotalCount != 2 || pb.TotalAmount != 7500 {
		t.Errorf("payer B = %d claims / %d cents, want 2 / 7500", pb.TotalCount, pb.TotalAmount)
	}
}

func TestService_AgingReport_CustomBoundaries(t *testing.T) {
	f := newServiceFixture()

	if _, err := f.svc.AgingReport(ctxTODO(), time.Now(), []int{60, 30}, false); err == nil {
		t.Fatal("expected error for unsorted boundaries")
	}

	report, err := f.svc.AgingReport(ctxTODO(), time.Now(), []int{15, 45}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Buckets) != 3 || report.Buckets[2].Range != "46+" {
		t.Errorf("custom boundaries produced %+v", report.Buckets)
	}
}

func TestService_Metrics(t *testing.T) {
	f := newServiceFixture()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	submitted := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	adjudicated := submitted.AddDate(0, 0, 20)
	f.repo.metricsRows = []*MetricsRow{
		{ClaimID: uuid.New(), SubmissionDate: submitted, AdjudicationDate: &adjudicated},
		{ClaimID: uuid.New(), SubmissionDate: submitted, EverDenied: true},
		{ClaimID: uuid.New(), SubmissionDate: submitted},
		{ClaimID: uuid.New(), SubmissionDate: submitted, EverDenied: true, AdjudicationDate: &adjudicated},
	}

	m, err := f.svc.Metrics(ctxTODO(), from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.SubmittedCount != 4 || m.DeniedCount != 2 || m.AdjudicatedCount != 2 {
		t.Errorf("counts = %d/%d/%d, want 4 submitted, 2 denied, 2 adjudicated",
			m.SubmittedCount, m.DeniedCount, m.AdjudicatedCount)
	}
	if m.DenialRate != 0.5 {
		t.Errorf("denial rate = %v, want 0.5", m.DenialRate)
	}
	if m.AvgProcessingTimeDays != 20 {
		t.Errorf("avg processing days = %v, want 20", m.AvgProcessingTimeDays)
	}
}

func TestService_Metrics_EmptyWindow(t *testing.T) {
	f := newServiceFixture()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m, err := f.svc.Metrics(ctxTODO(), from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DenialRate != 0 || m.AvgProcessingTimeDays != 0 {
		t.Error("an empty window must report zero rates, not NaN")
	}

	if _, err := f.svc.Metrics(ctxTODO(), from, from.AddDate(0, -1, 0)); err == nil {
		t.Fatal("expected error for an inverted window")
	}
}
