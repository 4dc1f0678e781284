package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain"
	domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"
)

type mockBudgetReader struct {
	reports map[domusage.Period]domusage.Report
	asked   []domusage.Period
}

func (m *mockBudgetReader) Report(p domusage.Period) domusage.Report {
	m.asked = append(m.asked, p)
	return m.reports[p]
}

func TestGetReport_DelegatesToReader(t *testing.T) {
	br := &mockBudgetReader{reports: map[domusage.Period]domusage.Report{
		domusage.PeriodDay:   {Period: domusage.PeriodDay, Tokens: 3000, Limit: 10000},
		domusage.PeriodMonth: {Period: domusage.PeriodMonth, Tokens: 80000, Limit: 100000},
	}}
	svc := New(br)

	day, err := svc.GetReport(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Period != domusage.PeriodDay || day.Tokens != 3000 || day.Remaining() != 7000 {
		t.Errorf("unexpected day report %+v", day)
	}

	month, err := svc.GetReport(context.Background(), "month")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if month.Tokens != 80000 || month.Remaining() != 20000 {
		t.Errorf("unexpected month report %+v", month)
	}
	if len(br.asked) != 2 || br.asked[0] != domusage.PeriodDay || br.asked[1] != domusage.PeriodMonth {
		t.Errorf("unexpected periods asked %v", br.asked)
	}
}

func TestGetReport_NilReaderIsUnlimited(t *testing.T) {
	svc := New(nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 17, 9, 0, 0, 0, time.UTC) }

	r, err := svc.GetReport(context.Background(), "month")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Tokens != 0 || r.Remaining() != -1 || r.Exhausted() {
		t.Errorf("expected empty unlimited report, got %+v", r)
	}
	if !r.PeriodStart.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected period start %v", r.PeriodStart)
	}
}

func TestGetReport_UnknownPeriod(t *testing.T) {
	_, err := New(nil).GetReport(context.Background(), "total")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
