package extract

import (
	"strings"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// textKeywords flag page lines that talk about an earthquake. Folded form.
var textKeywords = []string{"sismo", "temblor", "terremoto", "magnitud", "profundidad", "epicentro"}

// containerKeywords flag elements whose class or id suggests earthquake
// content. Folded form.
var containerKeywords = []string{"sismo", "earthquake", "quake", "temblor", "seism", "sism"}

var containerTags = []string{"div", "section", "article"}

// FreeText scans the flattened page text line by line. It only counts
// candidate lines; it never builds records.
// TODO: parse "Magnitud X, Profundidad Y km" sentences once a page revision
// without tables is available to test against.
type FreeText struct{}

// NewFreeText creates a FreeText strategy.
func NewFreeText() FreeText { return FreeText{} }

// Name identifies the strategy in logs and metrics.
func (FreeText) Name() string { return "free_text" }

// Extract counts keyword lines and returns no records.
func (FreeText) Extract(doc domain.Node, _ time.Time) Outcome {
	var out Outcome
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && domain.ContainsAny(line, textKeywords) {
			out.Candidates++
		}
	}
	return out
}

// Container scans generic container elements whose class or id mentions an
// earthquake. It only counts candidate elements; it never builds records.
type Container struct{}

// NewContainer creates a Container strategy.
func NewContainer() Container { return Container{} }

// Name identifies the strategy in logs and metrics.
func (Container) Name() string { return "container" }

// Extract counts matching container elements and returns no records.
func (Container) Extract(doc domain.Node, _ time.Time) Outcome {
	var out Outcome
	for _, tag := range containerTags {
		for _, el := range doc.FindAll(tag) {
			if domain.ContainsAny(el.Attr("class")+" "+el.Attr("id"), containerKeywords) {
				out.Candidates++
			}
		}
	}
	return out
}
