package extract

import (
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Chain tries strategies in order and stops at the first one that yields at
// least one record.
type Chain struct {
	strategies []Strategy
	limit      int
}

// NewChain creates a Chain. Output is truncated to limit records; a limit <= 0
// uses DefaultLimit.
func NewChain(limit int, strategies ...Strategy) *Chain {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Chain{strategies: strategies, limit: limit}
}

// DefaultChain returns the tabular, free-text and container strategies in
// that order.
func DefaultChain(limit int) *Chain {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return NewChain(limit, NewTabular(limit), NewFreeText(), NewContainer())
}

// Extract runs the chain over doc.
func (c *Chain) Extract(doc domain.Node, now time.Time) Result {
	var res Result
	for _, s := range c.strategies {
		out := s.Extract(doc, now)
		res.Attempts = append(res.Attempts, Attempt{
			Strategy:   s.Name(),
			Records:    len(out.Records),
			Candidates: out.Candidates,
		})
		if len(out.Records) == 0 {
			continue
		}
		res.Strategy = s.Name()
		res.Records = out.Records
		if len(res.Records) > c.limit {
			res.Records = res.Records[:c.limit]
		}
		return res
	}
	return res
}
