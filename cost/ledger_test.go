package cost

import (
	"math"
	"strings"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecordUsageBaseTier(t *testing.T) {
	l := NewLedger("gemini-2.5-pro")
	entry := l.RecordUsage(150_000, 1_000)

	want := 150_000/1e6*1.25 + 1_000/1e6*10.0
	if !approxEqual(entry.Cost, want) {
		t.Errorf("expected cost %.6f, got %.6f", want, entry.Cost)
	}
}

func TestRecordUsageTierCrossing(t *testing.T) {
	l := NewLedger("gemini-2.5-pro")

	first := l.RecordUsage(150_000, 1_000)
	wantFirst := 150_000/1e6*1.25 + 1_000/1e6*10.0
	if !approxEqual(first.Cost, wantFirst) {
		t.Errorf("first call should price at base rates: want %.6f got %.6f", wantFirst, first.Cost)
	}

	// Cumulative input is now 250,000 > 200,000; long-context rates apply.
	second := l.RecordUsage(100_000, 1_000)
	wantSecond := 100_000/1e6*2.5 + 1_000/1e6*15.0
	if !approxEqual(second.Cost, wantSecond) {
		t.Errorf("second call should price at long-context rates: want %.6f got %.6f", wantSecond, second.Cost)
	}

	if !approxEqual(l.TotalCost(), wantFirst+wantSecond) {
		t.Errorf("cost should be additive: want %.6f got %.6f", wantFirst+wantSecond, l.TotalCost())
	}
}

func TestCumulativeInputMonotonic(t *testing.T) {
	l := NewLedger("gemini-2.5-flash")
	prev := 0
	for _, in := range []int{500, 0, 12_000, 3} {
		l.RecordUsage(in, 10)
		if l.CumulativeInput() < prev {
			t.Fatalf("cumulative input decreased: %d -> %d", prev, l.CumulativeInput())
		}
		prev = l.CumulativeInput()
	}
	if prev != 12_503 {
		t.Errorf("expected cumulative 12503, got %d", prev)
	}
}

func TestModelWithoutLongContextTier(t *testing.T) {
	l := NewLedger("claude-sonnet-4-5")
	l.RecordUsage(500_000, 0)
	entry := l.RecordUsage(1_000_000, 0)

	// No threshold: base rate applies regardless of cumulative input.
	if !approxEqual(entry.Cost, 3.0) {
		t.Errorf("expected base rate pricing, got %.6f", entry.Cost)
	}
}

func TestUnknownModelFallsBack(t *testing.T) {
	l := NewLedger("some-future-model")
	if l.Profile().Model != DefaultModel {
		t.Errorf("expected fallback to %s, got %s", DefaultModel, l.Profile().Model)
	}
}

func TestSummaryFormat(t *testing.T) {
	l := NewLedger("gemini-2.5-pro")
	l.RecordUsage(1_234_000, 56_789)

	s := l.Summary()
	if !strings.Contains(s, "1,290,789 tokens") {
		t.Errorf("summary should contain locale-formatted total tokens: %q", s)
	}
	if !strings.Contains(s, "$") {
		t.Errorf("summary should contain a dollar amount: %q", s)
	}
}

func TestReportContents(t *testing.T) {
	l := NewLedger("gemini-2.5-pro")
	for i := 0; i < 7; i++ {
		l.RecordUsage(1_000, 100)
	}

	r := l.Report()
	if !strings.Contains(r, "Calls: 7") {
		t.Errorf("report should include call count: %q", r)
	}
	if !strings.Contains(r, "Total cost: $") {
		t.Errorf("report should include total cost: %q", r)
	}
	// Only the last five per-call entries are listed.
	if got := strings.Count(r, "in="); got != 5 {
		t.Errorf("expected 5 recent entries, got %d", got)
	}
}

func TestResetClearsTierCounter(t *testing.T) {
	l := NewLedger("gemini-2.5-pro")
	l.RecordUsage(250_000, 1_000) // crosses the threshold
	l.Reset()

	if l.CumulativeInput() != 0 || l.TotalCost() != 0 || len(l.Entries()) != 0 {
		t.Fatal("reset should clear all state")
	}

	// After reset, pricing starts back at the base tier.
	entry := l.RecordUsage(100_000, 0)
	if !approxEqual(entry.Cost, 100_000/1e6*1.25) {
		t.Errorf("expected base-tier pricing after reset, got %.6f", entry.Cost)
	}
}
