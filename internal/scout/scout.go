// Package scout discovers market opportunities with the language model and
// feeds them into the problem repository as ai_discovery records.
package scout

import (
	"context"
	"fmt"
	"log"

	"storyforge/internal/llm"
	"storyforge/internal/problems"
)

const discoverPrompt = `You are an expert market opportunity scout. Find 5 UNEXPLORED MARKET OPPORTUNITIES (not problems) in %s for %s in %s.

Focus on:
- Market GAPS where current solutions don't exist or are inadequate
- Opportunities that students/young professionals can realistically build
- Monetizable opportunities with clear revenue potential
- Local/regional advantages that can be leveraged

For each opportunity, provide:
1. "domain": Category (Healthcare, EdTech, Local Services, etc.)
2. "title": Compelling opportunity title (under 60 chars)
3. "opportunity": The market gap/opportunity (2-3 sentences)
4. "market_size": Who would pay for this and why
5. "why_now": Why this opportunity exists now
6. "barriers": What's preventing others from solving this

Format as JSON array of 5 opportunities.

Focus area: %s
Target audience: %s
Location: %s

Return only valid JSON array.`

// Opportunity is one discovered market gap.
type Opportunity struct {
	Domain      string
	Title       string
	Opportunity string
	MarketSize  string
	WhyNow      string
	Barriers    string
}

// Scout runs discovery sessions against a text-generation provider.
type Scout struct {
	provider  llm.Provider
	maxTokens int
}

// New creates a scout. Discovery needs more completion room than story
// synthesis, so the token limit is fixed rather than taken from config.
func New(provider llm.Provider) *Scout {
	return &Scout{provider: provider, maxTokens: 1000}
}

// Discover asks the model for opportunities in a focus area. A missing
// provider or an unparsable completion yields an empty list, never an error
// surfaced to the caller beyond the log.
func (s *Scout) Discover(ctx context.Context, focusArea, audience, location string) []Opportunity {
	if s.provider == nil || !s.provider.IsConfigured() {
		log.Println("No LLM provider configured, skipping opportunity discovery")
		return nil
	}
	if location == "" {
		location = "India"
	}

	prompt := fmt.Sprintf(discoverPrompt, focusArea, audience, location, focusArea, audience, location)
	text, err := s.provider.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		log.Printf("Error discovering opportunities: %v", err)
		return nil
	}

	items := llm.ParseJSONArray(text)
	if items == nil {
		log.Println("Discovery response was not a JSON array")
		return nil
	}

	out := make([]Opportunity, 0, len(items))
	for _, item := range items {
		out = append(out, Opportunity{
			Domain:      llm.GetString(item, "domain", "Unknown"),
			Title:       llm.GetString(item, "title", "Unknown Opportunity"),
			Opportunity: llm.GetString(item, "opportunity", ""),
			MarketSize:  llm.GetString(item, "market_size", ""),
			WhyNow:      llm.GetString(item, "why_now", ""),
			Barriers:    llm.GetString(item, "barriers", ""),
		})
	}
	return out
}

// AddToRepository inserts discovered opportunities as ai_discovery problems
// and returns how many were added. Per-item failures are logged and counted
// out, not propagated.
func AddToRepository(repo *problems.Repository, opportunities []Opportunity, source string) int {
	if source == "" {
		source = "AI Discovery"
	}

	added := 0
	for _, opp := range opportunities {
		description := fmt.Sprintf("OPPORTUNITY: %s Market: %s Timing: %s",
			opp.Opportunity, opp.MarketSize, opp.WhyNow)
		if _, err := repo.Add(opp.Domain, opp.Title, description, source, problems.SourceAIDiscovery); err != nil {
			log.Printf("Failed to add %q: %v", opp.Title, err)
			continue
		}
		added++
		log.Printf("Added: %s", opp.Title)
	}
	return added
}
