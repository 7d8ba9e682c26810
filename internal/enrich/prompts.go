package enrich

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/enrichment.md
var enrichmentPromptRaw string

// EnrichmentTemplate is the parsed prompt template for posting enrichment.
var EnrichmentTemplate = template.Must(template.New("enrichment").Parse(enrichmentPromptRaw))
