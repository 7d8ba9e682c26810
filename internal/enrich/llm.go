package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure LLMEnricher implements model.Enricher.
var _ model.Enricher = (*LLMEnricher)(nil)

// maxPromptText bounds the posting text sent to the provider.
const maxPromptText = 12000

// LLMEnricher extracts posting attributes with an LLM.
type LLMEnricher struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMEnricher creates an enricher backed by provider.
func NewLLMEnricher(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMEnricher {
	return &LLMEnricher{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Enrich returns the extracted attributes, or model.DefaultEnrichment when
// the text is empty or anything about the call fails.
func (e *LLMEnricher) Enrich(ctx context.Context, text string) model.Enrichment {
	if strings.TrimSpace(text) == "" {
		return model.DefaultEnrichment()
	}
	out, err := e.enrich(ctx, text)
	if err != nil {
		e.logger.Warn("enrichment failed, using defaults", "error", err)
		return model.DefaultEnrichment()
	}
	return out
}

func (e *LLMEnricher) enrich(ctx context.Context, text string) (model.Enrichment, error) {
	if len(text) > maxPromptText {
		text = strings.ToValidUTF8(text[:maxPromptText], "")
	}

	var promptBuf bytes.Buffer
	if err := e.tmpl.Execute(&promptBuf, struct{ Text string }{Text: text}); err != nil {
		return model.Enrichment{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.Enrichment{}, fmt.Errorf("llm complete: %w", err)
	}

	return parseEnrichment(raw)
}

// rawEnrichment is the JSON shape returned by the LLM.
type rawEnrichment struct {
	SalaryMin     *int     `json:"salary_min"`
	SalaryMax     *int     `json:"salary_max"`
	WorkModel     *string  `json:"work_model"`
	Industry      *string  `json:"industry"`
	Seniority     *string  `json:"seniority"`
	Technologies  []string `json:"technologies"`
	IsWinnipeg    bool     `json:"is_winnipeg"`
	Department    *string  `json:"department"`
	MinExperience *int     `json:"min_experience"`
}

// parseEnrichment normalizes the LLM output. Values outside the enums become
// unknown, and an unknown department becomes "other".
func parseEnrichment(raw string) (model.Enrichment, error) {
	var re rawEnrichment
	if err := json.Unmarshal([]byte(raw), &re); err != nil {
		return model.Enrichment{}, fmt.Errorf("unmarshal enrichment JSON: %w", err)
	}

	out := model.DefaultEnrichment()
	out.SalaryMin = re.SalaryMin
	out.SalaryMax = re.SalaryMax
	out.IsWinnipeg = re.IsWinnipeg
	out.MinExperience = re.MinExperience
	if re.WorkModel != nil {
		out.WorkModel = model.ParseWorkModel(*re.WorkModel)
	}
	if re.Industry != nil {
		out.Industry = strings.TrimSpace(*re.Industry)
	}
	if re.Seniority != nil {
		out.Seniority = model.ParseSeniority(*re.Seniority)
	}
	if re.Department != nil {
		out.Department = model.ParseDepartment(*re.Department)
	}
	for _, t := range re.Technologies {
		if t = strings.TrimSpace(t); t != "" {
			out.Technologies = append(out.Technologies, t)
		}
	}
	return out, nil
}
