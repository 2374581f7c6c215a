package extract

import (
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Tabular reads records from table rows. The first row of every table is
// treated as a header. The first table that yields any record wins.
type Tabular struct {
	limit int
}

// NewTabular creates a Tabular strategy that stops after limit records.
func NewTabular(limit int) *Tabular {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tabular{limit: limit}
}

// Name identifies the strategy in logs and metrics.
func (t *Tabular) Name() string { return "tabular" }

// Extract runs the row extractor over every data row until the limit.
func (t *Tabular) Extract(doc domain.Node, now time.Time) Outcome {
	var out Outcome
	for _, table := range doc.FindAll("table") {
		rows := table.FindAll("tr")
		if len(rows) < 2 {
			continue
		}
		for _, row := range rows[1:] {
			if len(out.Records) >= t.limit {
				return out
			}
			cells := cellTexts(row)
			out.Candidates++
			if rec, ok := domain.ExtractRow(cells, now); ok {
				out.Records = append(out.Records, rec)
			}
		}
		if len(out.Records) > 0 {
			return out
		}
	}
	return out
}

func cellTexts(row domain.Node) []string {
	cells := row.Cells()
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = domain.CleanText(c.Text())
	}
	return texts
}
