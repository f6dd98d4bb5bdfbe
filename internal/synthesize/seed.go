package synthesize

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"storyforge/internal/llm"
	"storyforge/internal/stories"
)

const seedOpportunitiesPrompt = `Generate %d diverse market opportunities in the %s domain focused on %s.

Each opportunity should be:
- Realistic and buildable by individuals or small teams
- Address real market gaps or user needs
- Have clear revenue potential
- Be accessible to people with basic to intermediate skills
- Cover different sub-areas within %s

For each opportunity, provide:
- "title": Opportunity name (under 55 chars)
- "opportunity_description": The market gap and potential (2-3 sentences)
- "target_audience": Who would use/pay for this
- "market_context": Why this opportunity exists now

Return as JSON array of %d opportunities.`

const seedStoryPrompt = `Convert this opportunity into a compelling story format:

Opportunity: %s
Description: %s
Target: %s
Context: %s
Domain: %s

Generate a JSON response with:
1. "title": Compelling headline (under 60 chars)
2. "domain": "%s"
3. "problem": The gap people face today (2-3 sentences)
4. "pathway": What's missing in current solutions (2-3 sentences)
5. "solution": Specific project to fill the gap (2-3 sentences, actionable)
6. "preview": One-sentence hook (under 100 chars)

Focus on actionable opportunities for anyone to build, not just students.
Return only valid JSON.`

var seedDomainContexts = map[string]string{
	"Healthcare":     "medical care, patient experience, healthcare accessibility, medical technology, wellness",
	"Education":      "learning, skill development, knowledge sharing, educational technology, academic support",
	"Finance":        "personal finance, investment, payments, financial planning, money management",
	"Local Services": "community services, local businesses, neighborhood solutions, hyperlocal needs",
	"Technology":     "software solutions, automation, digital transformation, tech innovation",
	"Agriculture":    "farming, food production, rural technology, agricultural efficiency",
	"Transportation": "mobility, logistics, public transport, delivery services, travel",
	"Climate":        "sustainability, environmental solutions, green technology, carbon reduction",
	"Employment":     "job opportunities, gig economy, skill development, career advancement",
	"Real Estate":    "property management, housing solutions, rental services, property technology",
}

// SeedDomains is the default domain set for comprehensive seeding.
func SeedDomains() []string {
	return []string{
		"Healthcare", "Education", "Finance", "Local Services",
		"Technology", "Agriculture", "Transportation", "Climate",
		"Employment", "Real Estate",
	}
}

// Seeder generates a curated seed story set from scratch: per-domain
// opportunity batches, each converted into story form.
type Seeder struct {
	provider llm.Provider
	store    *stories.Store
}

// NewSeeder creates a seeder writing through the given store.
func NewSeeder(provider llm.Provider, store *stories.Store) *Seeder {
	return &Seeder{provider: provider, store: store}
}

// ClearData removes existing snapshot files for a fresh start.
func ClearData(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			log.Printf("Deleted %s", p)
		}
	}
}

// Run generates perDomain seed stories for each domain and replaces the seed
// file. Per-item generation failures are logged and skipped.
func (s *Seeder) Run(ctx context.Context, domains []string, perDomain int) ([]stories.Story, error) {
	if s.provider == nil || !s.provider.IsConfigured() {
		return nil, fmt.Errorf("no LLM provider configured")
	}
	if len(domains) == 0 {
		domains = SeedDomains()
	}
	if perDomain <= 0 {
		perDomain = 6
	}

	var all []stories.Story
	for _, domain := range domains {
		log.Printf("Generating %s opportunities...", domain)
		opportunities := s.domainOpportunities(ctx, domain, perDomain)

		for i, opp := range opportunities {
			title := llm.GetString(opp, "title", "Unknown")
			log.Printf("  Converting %d/%d: %s", i+1, len(opportunities), title)

			story := s.toStory(ctx, opp, domain)
			if story == nil {
				log.Printf("  Failed to create story for: %s", title)
				continue
			}
			all = append(all, *story)
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no seed stories generated")
	}
	if err := s.store.SaveSeed(all); err != nil {
		return nil, err
	}
	log.Printf("Generated %d seed stories across %d domains", len(all), len(domains))
	return all, nil
}

func (s *Seeder) domainOpportunities(ctx context.Context, domain string, count int) []map[string]any {
	focus, ok := seedDomainContexts[domain]
	if !ok {
		focus = "general business and technology solutions"
	}

	prompt := fmt.Sprintf(seedOpportunitiesPrompt, count, domain, focus, domain, count)
	text, err := s.provider.Generate(ctx, prompt, 1200)
	if err != nil {
		log.Printf("Failed to generate %s opportunities: %v", domain, err)
		return nil
	}
	return llm.ParseJSONArray(text)
}

func (s *Seeder) toStory(ctx context.Context, opp map[string]any, domain string) *stories.Story {
	prompt := fmt.Sprintf(seedStoryPrompt,
		llm.GetString(opp, "title", "Unknown"),
		llm.GetString(opp, "opportunity_description", ""),
		llm.GetString(opp, "target_audience", ""),
		llm.GetString(opp, "market_context", ""),
		domain, domain)

	text, err := s.provider.Generate(ctx, prompt, 500)
	if err != nil {
		return nil
	}
	parsed := llm.ParseJSONResponse(text)
	if parsed == nil {
		return nil
	}
	title := strings.TrimSpace(llm.GetString(parsed, "title", ""))
	if title == "" {
		return nil
	}

	return &stories.Story{
		Title:       title,
		Domain:      llm.GetString(parsed, "domain", domain),
		Problem:     llm.GetString(parsed, "problem", ""),
		Pathway:     llm.GetString(parsed, "pathway", ""),
		Solution:    llm.GetString(parsed, "solution", ""),
		Preview:     llm.GetString(parsed, "preview", ""),
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
}
