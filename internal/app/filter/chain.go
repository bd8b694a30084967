package filter

import (
	"context"

	"github.com/osa030/sleepmix/internal/domain/mix"
)

// Rejection records a track refused by a filter.
type Rejection struct {
	Track  mix.Track
	Filter string
	Code   string
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs the filters applying to origin in sequence.
// Returns the first rejection, with the name of the rejecting filter.
func (c *Chain) Execute(ctx context.Context, t mix.Track, m *mix.Mix, origin Origin) (Result, string) {
	for _, f := range c.filters {
		if !f.AppliesTo(origin) {
			continue
		}

		result := f.Check(ctx, t, m)
		if !result.Accepted {
			return result, f.Name()
		}
	}
	return Accept(), ""
}

// Partition checks every track of m and splits them into accepted and rejected, keeping order.
func (c *Chain) Partition(ctx context.Context, m *mix.Mix, origin Origin) ([]mix.Track, []Rejection) {
	accepted := make([]mix.Track, 0, len(m.Tracks))
	var rejected []Rejection
	for _, t := range m.Tracks {
		result, name := c.Execute(ctx, t, m, origin)
		if !result.Accepted {
			rejected = append(rejected, Rejection{Track: t, Filter: name, Code: result.Code})
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
