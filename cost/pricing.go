// Package cost tracks per-call and cumulative token and dollar accounting
// for a session, including tiered long-context pricing.
package cost

// PricingProfile describes a model's per-million-token rates. Models with a
// LongContextThreshold switch to the long-context rates once the session's
// cumulative input tokens cross it.
type PricingProfile struct {
	Model                string
	InputPerMillion      float64
	OutputPerMillion     float64
	LongContextThreshold int     // 0 = no long-context tier
	LongInputPerMillion  float64 // 0 = base rate applies
	LongOutputPerMillion float64
}

// DefaultModel is the pricing fallback for unknown model names.
const DefaultModel = "gemini-2.5-pro"

// profiles is the built-in pricing table, keyed by model name.
var profiles = map[string]PricingProfile{
	"gemini-2.5-pro": {
		Model:                "gemini-2.5-pro",
		InputPerMillion:      1.25,
		OutputPerMillion:     10.0,
		LongContextThreshold: 200_000,
		LongInputPerMillion:  2.50,
		LongOutputPerMillion: 15.0,
	},
	"gemini-2.5-flash": {
		Model:            "gemini-2.5-flash",
		InputPerMillion:  0.30,
		OutputPerMillion: 2.50,
	},
	"gemini-2.0-flash": {
		Model:            "gemini-2.0-flash",
		InputPerMillion:  0.10,
		OutputPerMillion: 0.40,
	},
	"claude-sonnet-4-5": {
		Model:            "claude-sonnet-4-5",
		InputPerMillion:  3.0,
		OutputPerMillion: 15.0,
	},
	"claude-opus-4-1": {
		Model:            "claude-opus-4-1",
		InputPerMillion:  15.0,
		OutputPerMillion: 75.0,
	},
	"claude-haiku-4-5": {
		Model:            "claude-haiku-4-5",
		InputPerMillion:  1.0,
		OutputPerMillion: 5.0,
	},
	"gpt-4o": {
		Model:            "gpt-4o",
		InputPerMillion:  2.50,
		OutputPerMillion: 10.0,
	},
	"gpt-4o-mini": {
		Model:            "gpt-4o-mini",
		InputPerMillion:  0.15,
		OutputPerMillion: 0.60,
	},
}

// ProfileFor returns the pricing profile for a model, falling back to the
// DefaultModel profile for unknown names.
func ProfileFor(model string) PricingProfile {
	if p, ok := profiles[model]; ok {
		return p
	}
	return profiles[DefaultModel]
}

// KnownModels returns the model names in the pricing table.
func KnownModels() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	return names
}
