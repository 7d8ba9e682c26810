package enrich

import (
	"context"

	"github.com/amishk599/applynow/internal/model"
)

// NopEnricher is used when enrichment is disabled. Every posting gets the
// default attributes.
type NopEnricher struct{}

// NewNopEnricher returns a NopEnricher.
func NewNopEnricher() *NopEnricher {
	return &NopEnricher{}
}

// Enrich returns model.DefaultEnrichment.
func (n *NopEnricher) Enrich(_ context.Context, _ string) model.Enrichment {
	return model.DefaultEnrichment()
}
