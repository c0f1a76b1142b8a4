// ABOUTME: Business-intelligence report tools: company profile, market research,
// ABOUTME: competitor analysis, and SWOT. Each builds a prompt and calls the Completer.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// searchLimit bounds how many search hits are folded into a prompt.
const searchLimit = 5

// fetchExcerptLimit bounds how much fetched page text is folded into
// a prompt.
const fetchExcerptLimit = 2000

// RegisterReportTools registers the report toolset against the given
// collaborators.
func RegisterReportTools(r *Registry, deps Deps) error {
	if deps.Completer == nil {
		return errors.New("completer is required")
	}

	b := &reportBuilder{deps: deps}
	toolset := []*Tool{
		{
			Name:        "company_profile",
			Description: "Generate a company profile report: history, leadership, products, and financial posture",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"company":{"type":"string"},"region":{"type":"string"},"focus":{"type":"string","enum":["overview","financials","leadership","products"]}},"required":["company"]}`),
			Handler:     b.CompanyProfile,
		},
		{
			Name:        "market_research",
			Description: "Generate a market research report: size, growth, segments, and trends for an industry",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"industry":{"type":"string"},"region":{"type":"string"},"horizon_years":{"type":"integer","minimum":1,"maximum":10}},"required":["industry"]}`),
			Handler:     b.MarketResearch,
		},
		{
			Name:        "competitor_analysis",
			Description: "Generate a competitor landscape report comparing a company against named or discovered rivals",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"company":{"type":"string"},"competitors":{"type":"array","items":{"type":"string"}},"criteria":{"type":"array","items":{"type":"string"}}},"required":["company"]}`),
			Handler:     b.CompetitorAnalysis,
		},
		{
			Name:        "swot_analysis",
			Description: "Generate a SWOT analysis (strengths, weaknesses, opportunities, threats) for a company",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"company":{"type":"string"},"context":{"type":"string"}},"required":["company"]}`),
			Handler:     b.SWOTAnalysis,
		},
	}

	for _, tool := range toolset {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// reportBuilder holds the collaborators shared by all report tools.
type reportBuilder struct {
	deps Deps
}

// research runs an optional supporting search and renders the hits as
// prompt context, pulling an excerpt of the top hit's page when a
// fetcher is configured. Returns empty when no searcher is configured.
func (b *reportBuilder) research(ctx context.Context, query string) string {
	if b.deps.Searcher == nil {
		return ""
	}

	results, err := b.deps.Searcher.Search(ctx, query, searchLimit)
	if err != nil || len(results) == 0 {
		// Search is best-effort enrichment; the report proceeds without it
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Supporting material:\n")
	for _, res := range results {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", res.Title, res.URL, res.Snippet)
	}

	if b.deps.Fetcher != nil && results[0].URL != "" {
		// Same best-effort stance as the search itself
		if page, err := b.deps.Fetcher.Fetch(ctx, results[0].URL); err == nil && page != "" {
			if len(page) > fetchExcerptLimit {
				page = page[:fetchExcerptLimit]
			}
			fmt.Fprintf(&sb, "\nExcerpt from %s:\n%s\n", results[0].URL, page)
		}
	}

	return sb.String()
}

// complete runs the prompt through the LLM collaborator.
func (b *reportBuilder) complete(ctx context.Context, prompt, material string) (string, error) {
	if material != "" {
		prompt = prompt + "\n\n" + material
	}
	report, err := b.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	return report, nil
}

// companyProfileInput is the configuration object for company_profile.
// All fields except Company are independently optional.
type companyProfileInput struct {
	Company string `json:"company"`
	Region  string `json:"region,omitempty"`
	Focus   string `json:"focus,omitempty"`
}

// validFocusValues for company_profile's focus parameter.
var validFocusValues = map[string]bool{
	"": true, "overview": true, "financials": true, "leadership": true, "products": true,
}

func (in *companyProfileInput) validate() error {
	if strings.TrimSpace(in.Company) == "" {
		return errors.New("company is required")
	}
	if !validFocusValues[in.Focus] {
		return fmt.Errorf("invalid focus %q", in.Focus)
	}
	return nil
}

// CompanyProfile generates a company profile report.
func (b *reportBuilder) CompanyProfile(ctx context.Context, input json.RawMessage) (string, error) {
	var in companyProfileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a company profile report for %s.", in.Company)
	if in.Region != "" {
		fmt.Fprintf(&sb, " Concentrate on their operations in %s.", in.Region)
	}
	if in.Focus != "" && in.Focus != "overview" {
		fmt.Fprintf(&sb, " Emphasize %s.", in.Focus)
	}
	sb.WriteString(" Cover history, leadership, products and services, and financial posture.")

	material := b.research(ctx, in.Company+" company overview")
	return b.complete(ctx, sb.String(), material)
}

// marketResearchInput is the configuration object for market_research.
type marketResearchInput struct {
	Industry     string `json:"industry"`
	Region       string `json:"region,omitempty"`
	HorizonYears int    `json:"horizon_years,omitempty"`
}

func (in *marketResearchInput) validate() error {
	if strings.TrimSpace(in.Industry) == "" {
		return errors.New("industry is required")
	}
	if in.HorizonYears < 0 || in.HorizonYears > 10 {
		return fmt.Errorf("horizon_years must be between 1 and 10, got %d", in.HorizonYears)
	}
	return nil
}

// MarketResearch generates a market research report.
func (b *reportBuilder) MarketResearch(ctx context.Context, input json.RawMessage) (string, error) {
	var in marketResearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a market research report for the %s industry.", in.Industry)
	if in.Region != "" {
		fmt.Fprintf(&sb, " Scope the analysis to %s.", in.Region)
	}
	horizon := in.HorizonYears
	if horizon == 0 {
		horizon = 5
	}
	fmt.Fprintf(&sb, " Include market size, growth projections over %d years, key segments, and trends.", horizon)

	material := b.research(ctx, in.Industry+" market size trends")
	return b.complete(ctx, sb.String(), material)
}

// competitorAnalysisInput is the configuration object for competitor_analysis.
type competitorAnalysisInput struct {
	Company     string   `json:"company"`
	Competitors []string `json:"competitors,omitempty"`
	Criteria    []string `json:"criteria,omitempty"`
}

func (in *competitorAnalysisInput) validate() error {
	if strings.TrimSpace(in.Company) == "" {
		return errors.New("company is required")
	}
	for _, c := range in.Competitors {
		if strings.TrimSpace(c) == "" {
			return errors.New("competitors must not contain empty names")
		}
	}
	return nil
}

// CompetitorAnalysis generates a competitor landscape report.
func (b *reportBuilder) CompetitorAnalysis(ctx context.Context, input json.RawMessage) (string, error) {
	var in competitorAnalysisInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a competitor analysis for %s.", in.Company)
	if len(in.Competitors) > 0 {
		fmt.Fprintf(&sb, " Compare against: %s.", strings.Join(in.Competitors, ", "))
	} else {
		sb.WriteString(" Identify their main competitors first.")
	}
	if len(in.Criteria) > 0 {
		fmt.Fprintf(&sb, " Evaluate on: %s.", strings.Join(in.Criteria, ", "))
	}

	material := b.research(ctx, in.Company+" competitors")
	return b.complete(ctx, sb.String(), material)
}

// swotInput is the configuration object for swot_analysis.
type swotInput struct {
	Company string `json:"company"`
	Context string `json:"context,omitempty"`
}

func (in *swotInput) validate() error {
	if strings.TrimSpace(in.Company) == "" {
		return errors.New("company is required")
	}
	return nil
}

// SWOTAnalysis generates a SWOT analysis report.
func (b *reportBuilder) SWOTAnalysis(ctx context.Context, input json.RawMessage) (string, error) {
	var in swotInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a SWOT analysis for %s: strengths, weaknesses, opportunities, threats.", in.Company)
	if in.Context != "" {
		fmt.Fprintf(&sb, " Additional context: %s", in.Context)
	}

	material := b.research(ctx, in.Company+" strengths weaknesses")
	return b.complete(ctx, sb.String(), material)
}
