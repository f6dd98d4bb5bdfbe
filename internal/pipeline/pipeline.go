// Package pipeline orchestrates incremental opportunity-story generation:
// unprocessed problems in, synthesized stories out, with best-effort context
// from the source adapters.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"storyforge/internal/problems"
	"storyforge/internal/scrape"
	"storyforge/internal/stories"
	"storyforge/internal/synthesize"
)

// ContextSource supplies scraped records. Implementations never fail past
// their boundary; a broken source yields fewer records.
type ContextSource interface {
	Problems(domains []string) []scrape.ProblemLead
	Pathways(domains []string) []scrape.Pathway
	ResearchContext(domains []string) []scrape.Research
}

// StepResult holds the outcome of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the outcome of a pipeline run. Generated and the processed
// flags are paired: a problem is marked processed only when its story is in
// Generated.
type Result struct {
	Selected  int
	Skipped   int
	Persisted int
	Generated []stories.Story
	Steps     []StepResult
}

// Pipeline wires the repository, story store, weaver and adapters together.
type Pipeline struct {
	repo    *problems.Repository
	store   *stories.Store
	weaver  *synthesize.Weaver
	sources ContextSource
}

// New creates a pipeline.
func New(repo *problems.Repository, store *stories.Store, weaver *synthesize.Weaver, sources ContextSource) *Pipeline {
	return &Pipeline{repo: repo, store: store, weaver: weaver, sources: sources}
}

// Run generates stories for unprocessed problems, up to maxStories
// (0 = no cap), optionally restricted to the given domains. Zero unprocessed
// problems is a normal terminal state with no story-file write. Generation
// failures skip the problem and leave it unprocessed.
func (p *Pipeline) Run(ctx context.Context, domains []string, maxStories int) *Result {
	log.Println("Starting incremental story generation...")
	r := &Result{}

	// Select
	unprocessed := p.repo.Unprocessed()
	if len(unprocessed) == 0 {
		log.Println("No new problems to process")
		r.step("Select", "No unprocessed problems", nil)
		return r
	}
	log.Printf("Found %d unprocessed problems", len(unprocessed))

	// Filter
	if len(domains) > 0 {
		unprocessed = filterByDomain(unprocessed, domains)
		log.Printf("Filtered to %d problems in domains: %v", len(unprocessed), domains)
		if len(unprocessed) == 0 {
			r.step("Select", "No unprocessed problems in requested domains", nil)
			return r
		}
	}
	r.Selected = len(unprocessed)
	r.step("Select", fmt.Sprintf("%d unprocessed problems selected", r.Selected), nil)

	// Context fetch, best effort
	pathways, research := p.fetchContext(domains, unprocessed)
	r.step("Context", fmt.Sprintf("%d pathways, %d research records available", len(pathways), len(research)), nil)

	// Generate loop
	if maxStories <= 0 || maxStories > len(unprocessed) {
		maxStories = len(unprocessed)
	}
	for i, problem := range unprocessed[:maxStories] {
		log.Printf("Processing problem %d/%d: %s", i+1, maxStories, problem.Title)

		pathway, paper := matchContext(problem.Domain, pathways, research)
		story := p.weaver.Generate(ctx, synthesize.ProblemInput{
			Title:       problem.Title,
			Description: problem.Description,
			Domain:      problem.Domain,
			Source:      problem.Source,
		}, pathway, paper)

		if story == nil {
			log.Printf("Failed to generate story for: %s", problem.Title)
			r.Skipped++
			continue
		}

		if err := p.repo.MarkProcessed(problem.ID); err != nil {
			// Snapshot write failure is fatal for the batch; the story is
			// dropped so emission stays paired with the processed flag.
			r.step("Generate", "", fmt.Errorf("marking problem %s processed: %w", problem.ID, err))
			break
		}
		r.Generated = append(r.Generated, *story)
		log.Printf("Generated: %s", story.Title)
	}
	r.step("Generate", fmt.Sprintf("%d stories generated, %d skipped", len(r.Generated), r.Skipped), nil)

	// Persist
	if len(r.Generated) > 0 {
		added, err := p.store.Append(r.Generated, true)
		if err != nil {
			r.step("Persist", "", err)
			return r
		}
		r.Persisted = added
		r.step("Persist", fmt.Sprintf("%d new stories saved", added), nil)
	}

	log.Printf("Generated %d new stories from unprocessed problems", len(r.Generated))
	return r
}

// FullRun is the cold-start pipeline: scrape problem leads directly, match
// them per domain with pathways and research, and generate up to
// maxPerDomain stories for each domain.
func (p *Pipeline) FullRun(ctx context.Context, domains []string, maxPerDomain int) *Result {
	log.Println("Starting full story generation pipeline...")
	r := &Result{}
	if maxPerDomain <= 0 {
		maxPerDomain = 3
	}

	var batch *scrape.Batch
	if p.sources != nil {
		batch = &scrape.Batch{
			Problems: p.sources.Problems(domains),
			Pathways: p.sources.Pathways(domains),
			Research: p.sources.ResearchContext(domains),
		}
	} else {
		batch = &scrape.Batch{}
	}
	r.step("Scrape", fmt.Sprintf("%d problems, %d pathways, %d research records",
		len(batch.Problems), len(batch.Pathways), len(batch.Research)), nil)

	for _, domain := range domains {
		matches := matchDomain(batch, domain)
		log.Printf("Created %d matches for %s", len(matches), domain)

		count := 0
		for _, m := range matches {
			if count >= maxPerDomain {
				break
			}
			story := p.weaver.Generate(ctx, m.problem, m.pathway, m.research)
			if story == nil {
				r.Skipped++
				continue
			}
			r.Generated = append(r.Generated, *story)
			count++
		}
	}
	r.Selected = len(r.Generated) + r.Skipped
	r.step("Generate", fmt.Sprintf("%d stories generated, %d skipped", len(r.Generated), r.Skipped), nil)

	if len(r.Generated) > 0 {
		added, err := p.store.Append(r.Generated, true)
		if err != nil {
			r.step("Persist", "", err)
			return r
		}
		r.Persisted = added
		r.step("Persist", fmt.Sprintf("%d new stories saved", added), nil)
	}

	return r
}

// fetchContext gathers pathway/research context for the run. Without any
// sources (or when they return nothing usable) the per-problem match falls
// back to placeholders.
func (p *Pipeline) fetchContext(domains []string, selected []problems.Problem) ([]scrape.Pathway, []scrape.Research) {
	if p.sources == nil {
		return nil, nil
	}

	if len(domains) == 0 {
		seen := make(map[string]struct{})
		for _, pr := range selected {
			key := strings.ToLower(pr.Domain)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				domains = append(domains, key)
			}
		}
	}

	return p.sources.Pathways(domains), p.sources.ResearchContext(domains)
}

// matchContext finds domain-matching context, substituting synthetic
// placeholders when none is available so generation always has all three
// blocks.
func matchContext(domain string, pathways []scrape.Pathway, research []scrape.Research) (*synthesize.PathwayInput, *synthesize.ResearchInput) {
	pathway := &synthesize.PathwayInput{
		Name:        fmt.Sprintf("Sample %s Solution", domain),
		Description: fmt.Sprintf("Current approaches in %s are addressing similar challenges but gaps remain.", domain),
	}
	for _, pw := range pathways {
		if strings.EqualFold(pw.Domain, domain) {
			pathway = &synthesize.PathwayInput{Name: pw.Name, Description: pw.Description, Source: pw.Source}
			break
		}
	}

	paper := &synthesize.ResearchInput{
		Title:    fmt.Sprintf("%s Research Insights", domain),
		Abstract: fmt.Sprintf("Recent research in %s shows opportunities for innovation.", domain),
	}
	for _, rs := range research {
		if strings.EqualFold(rs.Domain, domain) {
			paper = &synthesize.ResearchInput{Title: rs.Title, Abstract: rs.Abstract, Source: rs.Source}
			break
		}
	}

	return pathway, paper
}

type match struct {
	problem  synthesize.ProblemInput
	pathway  *synthesize.PathwayInput
	research *synthesize.ResearchInput
}

// matchDomain pairs each of a domain's first problems (at most 4) with a
// pathway and research record, round-robin when fewer are available.
func matchDomain(batch *scrape.Batch, domain string) []match {
	var leads []scrape.ProblemLead
	for _, pl := range batch.Problems {
		if strings.EqualFold(pl.Domain, domain) {
			leads = append(leads, pl)
		}
	}
	var pathways []scrape.Pathway
	for _, pw := range batch.Pathways {
		if strings.EqualFold(pw.Domain, domain) {
			pathways = append(pathways, pw)
		}
	}
	var research []scrape.Research
	for _, rs := range batch.Research {
		if strings.EqualFold(rs.Domain, domain) {
			research = append(research, rs)
		}
	}

	n := len(leads)
	if n > 4 {
		n = 4
	}

	matches := make([]match, 0, n)
	for i := 0; i < n; i++ {
		m := match{problem: synthesize.ProblemInput{
			Title:       leads[i].Title,
			Description: leads[i].Description,
			Domain:      leads[i].Domain,
			Source:      leads[i].Source,
		}}
		if len(pathways) > 0 {
			pw := pathways[i%len(pathways)]
			m.pathway = &synthesize.PathwayInput{Name: pw.Name, Description: pw.Description, Source: pw.Source}
		}
		if len(research) > 0 {
			rs := research[i%len(research)]
			m.research = &synthesize.ResearchInput{Title: rs.Title, Abstract: rs.Abstract, Source: rs.Source}
		}
		matches = append(matches, m)
	}
	return matches
}

func filterByDomain(records []problems.Problem, domains []string) []problems.Problem {
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		allowed[strings.ToLower(d)] = struct{}{}
	}

	var out []problems.Problem
	for _, p := range records {
		if _, ok := allowed[strings.ToLower(p.Domain)]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Result) step(name, summary string, err error) {
	r.Steps = append(r.Steps, StepResult{Name: name, Summary: summary, Err: err})
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}
