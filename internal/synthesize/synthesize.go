// Package synthesize weaves a problem and optional pathway/research context
// into an opportunity story via a single text-generation call.
package synthesize

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"storyforge/internal/llm"
	"storyforge/internal/stories"
)

const storyPrompt = `You are an expert at identifying market opportunities and gaps for student projects. Given information about a problem, current solutions, and research, create a compelling story that reveals a specific buildable opportunity.

%s

Generate a JSON response with these exact fields:
1. "title": Compelling headline capturing the opportunity (under 60 chars)
2. "domain": The domain (Healthcare, Climate, AI, etc.)
3. "problem": Clear 2-3 sentence problem statement focusing on the real pain point
4. "pathway": What's currently being tried (mention companies/research, 2-3 sentences)
5. "solution": Specific gap and student project opportunity (2-3 sentences, be concrete about what to build)
6. "preview": One-sentence hook under 100 chars

Focus on:
- Identifying specific gaps in current approaches
- Suggesting realistic, buildable projects for students
- Being actionable and exciting
- Realistic scope for a student project

Return only valid JSON.`

// ProblemInput is the required story input.
type ProblemInput struct {
	Title       string
	Description string
	Domain      string
	Source      string
}

// PathwayInput is an optional existing-solution context block.
type PathwayInput struct {
	Name        string
	Description string
	Source      string
}

// ResearchInput is an optional research context block.
type ResearchInput struct {
	Title    string
	Abstract string
	Source   string
}

// Weaver generates stories through a text-generation provider.
type Weaver struct {
	provider  llm.Provider
	maxTokens int
}

// NewWeaver creates a story weaver.
func NewWeaver(provider llm.Provider, maxTokens int) *Weaver {
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Weaver{provider: provider, maxTokens: maxTokens}
}

// Generate produces a story for the problem, or nil when the generation call
// fails or returns unparsable content. A nil result is a skipped item for the
// caller, not an error; no retries happen here. The returned story has no id:
// the story store assigns one on append.
func (w *Weaver) Generate(ctx context.Context, problem ProblemInput, pathway *PathwayInput, research *ResearchInput) *stories.Story {
	if w.provider == nil {
		log.Println("No LLM provider available for story generation")
		return nil
	}

	prompt := fmt.Sprintf(storyPrompt, buildContext(problem, pathway, research))

	responseText, err := w.provider.Generate(ctx, prompt, w.maxTokens)
	if err != nil {
		log.Printf("Story generation failed: %v", err)
		return nil
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		log.Printf("Failed to parse story response. Raw response: %s", responseText)
		return nil
	}

	story := &stories.Story{
		Title:       llm.GetString(parsed, "title", ""),
		Domain:      llm.GetString(parsed, "domain", problem.Domain),
		Problem:     llm.GetString(parsed, "problem", ""),
		Pathway:     llm.GetString(parsed, "pathway", ""),
		Solution:    llm.GetString(parsed, "solution", ""),
		Preview:     llm.GetString(parsed, "preview", ""),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Sources:     provenance(problem, pathway, research),
	}
	if story.Title == "" {
		log.Println("Story response missing title, skipping")
		return nil
	}
	return story
}

// buildContext composes the natural-language context from the available
// inputs. The problem is always present; pathway and research each add a
// short block when given.
func buildContext(problem ProblemInput, pathway *PathwayInput, research *ResearchInput) string {
	parts := []string{
		fmt.Sprintf("PROBLEM: %s\nDescription: %s", orUnknown(problem.Title), orUnknown(problem.Description)),
	}

	if pathway != nil {
		parts = append(parts, fmt.Sprintf("CURRENT SOLUTION: %s\nDescription: %s",
			orUnknown(pathway.Name), orUnknown(pathway.Description)))
	}
	if research != nil {
		parts = append(parts, fmt.Sprintf("RESEARCH: %s\nDetails: %s",
			orUnknown(research.Title), orUnknown(research.Abstract)))
	}

	return strings.Join(parts, "\n\n")
}

func provenance(problem ProblemInput, pathway *PathwayInput, research *ResearchInput) stories.Sources {
	s := stories.Sources{
		ProblemSource:  orUnknown(problem.Source),
		PathwaySource:  "Unknown",
		ResearchSource: "Unknown",
	}
	if pathway != nil {
		s.PathwaySource = orUnknown(pathway.Source)
	}
	if research != nil {
		s.ResearchSource = orUnknown(research.Source)
	}
	return s
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
