package cost

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// UsageEntry records one priced provider call.
type UsageEntry struct {
	InputTokens  int
	OutputTokens int
	Cost         float64
	Timestamp    time.Time
}

// Ledger accumulates token usage and dollar cost for a session. Tier
// selection uses the running cumulative input as of the call being priced:
// once the session has crossed the long-context threshold, every subsequent
// call is priced at the long-context rates. The counter only resets via
// Reset.
//
// The agent loop is strictly serial, so the ledger needs no locking.
type Ledger struct {
	profile         PricingProfile
	entries         []UsageEntry
	cumulativeInput int
	totalInput      int
	totalOutput     int
	totalCost       float64
}

var printer = message.NewPrinter(language.English)

// NewLedger creates a ledger priced for the given model, falling back to the
// default profile for unknown names.
func NewLedger(model string) *Ledger {
	return &Ledger{profile: ProfileFor(model)}
}

// Profile returns the pricing profile the ledger was constructed with.
func (l *Ledger) Profile() PricingProfile {
	return l.profile
}

// RecordUsage prices one call and appends it to the ledger.
func (l *Ledger) RecordUsage(inputTokens, outputTokens int) UsageEntry {
	l.cumulativeInput += inputTokens

	inRate := l.profile.InputPerMillion
	outRate := l.profile.OutputPerMillion
	if l.profile.LongContextThreshold > 0 && l.cumulativeInput > l.profile.LongContextThreshold {
		if l.profile.LongInputPerMillion > 0 {
			inRate = l.profile.LongInputPerMillion
		}
		if l.profile.LongOutputPerMillion > 0 {
			outRate = l.profile.LongOutputPerMillion
		}
	}

	cost := float64(inputTokens)/1e6*inRate + float64(outputTokens)/1e6*outRate
	entry := UsageEntry{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Timestamp:    time.Now(),
	}

	l.entries = append(l.entries, entry)
	l.totalInput += inputTokens
	l.totalOutput += outputTokens
	l.totalCost += cost
	return entry
}

// Entries returns a copy of the recorded entries.
func (l *Ledger) Entries() []UsageEntry {
	out := make([]UsageEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CumulativeInput returns the running input-token counter used for tier
// selection. Monotonically nondecreasing for the lifetime of the ledger.
func (l *Ledger) CumulativeInput() int {
	return l.cumulativeInput
}

// TotalCost returns the summed dollar cost of all recorded calls.
func (l *Ledger) TotalCost() float64 {
	return l.totalCost
}

// Summary renders the short one-liner: "<tokens> tokens | $<cost>".
func (l *Ledger) Summary() string {
	return printer.Sprintf("%d tokens | $%.4f", l.totalInput+l.totalOutput, l.totalCost)
}

// Report renders the detailed multi-line usage report.
func (l *Ledger) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %s\n", l.profile.Model)
	printer.Fprintf(&sb, "Calls: %d\n", len(l.entries))
	printer.Fprintf(&sb, "Input tokens: %d\n", l.totalInput)
	printer.Fprintf(&sb, "Output tokens: %d\n", l.totalOutput)
	printer.Fprintf(&sb, "Total tokens: %d\n", l.totalInput+l.totalOutput)
	fmt.Fprintf(&sb, "Total cost: $%.4f\n", l.totalCost)

	if len(l.entries) > 0 {
		sb.WriteString("Recent calls:\n")
		start := len(l.entries) - 5
		if start < 0 {
			start = 0
		}
		for _, e := range l.entries[start:] {
			printer.Fprintf(&sb, "  %s  in=%d out=%d  $%.4f\n",
				e.Timestamp.Format("15:04:05"), e.InputTokens, e.OutputTokens, e.Cost)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Reset clears all state, including the cumulative tier counter.
func (l *Ledger) Reset() {
	l.entries = nil
	l.cumulativeInput = 0
	l.totalInput = 0
	l.totalOutput = 0
	l.totalCost = 0
}
