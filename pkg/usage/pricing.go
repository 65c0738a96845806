package usage

import (
	"fmt"
	"strconv"
	"strings"
)

// Price is the cost per million tokens.
type Price struct {
	InPerMTok  float64
	OutPerMTok float64
}

type Pricing map[string]Price

// Cost is zero for models without a price.
func (p Pricing) Cost(model string, tokensIn, tokensOut int) float64 {
	price, ok := p[model]
	if !ok {
		return 0
	}
	return (float64(tokensIn)*price.InPerMTok + float64(tokensOut)*price.OutPerMTok) / 1_000_000
}

// ParsePricing reads "model=in:out,model=in:out".
func ParsePricing(raw string) (Pricing, error) {
	out := make(Pricing)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		model, rates, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("pricing %q: expected model=in:out", item)
		}
		in, outRate, ok := strings.Cut(rates, ":")
		if !ok {
			return nil, fmt.Errorf("pricing %q: expected in:out", item)
		}
		inVal, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
		if err != nil {
			return nil, fmt.Errorf("pricing %q: %w", item, err)
		}
		outVal, err := strconv.ParseFloat(strings.TrimSpace(outRate), 64)
		if err != nil {
			return nil, fmt.Errorf("pricing %q: %w", item, err)
		}
		out[strings.TrimSpace(model)] = Price{InPerMTok: inVal, OutPerMTok: outVal}
	}
	return out, nil
}
