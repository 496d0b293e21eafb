// Package cost prices LLM token usage and accumulates per-run provider spend.
package cost

// Rates holds per-model pricing configuration.
type Rates struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// LLM computes the cost of one completion. Unknown models cost 0.
func (c *Calculator) LLM(model string, input, output int64) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gemini-2.0-flash":           {Input: 0.10, Output: 0.40},
			"gemini-2.5-flash":           {Input: 0.30, Output: 2.50},
			"gemini-2.5-pro":             {Input: 1.25, Output: 10.00},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
	}
}
