package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyforge/internal/problems"
	"storyforge/internal/scrape"
	"storyforge/internal/stories"
	"storyforge/internal/synthesize"
)

// seqProvider returns a fresh well-formed story per call, with an optional
// set of call indexes (1-based) that answer garbage instead.
type seqProvider struct {
	calls      int
	failOn     map[int]bool
	lastPrompt string
}

func (p *seqProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	p.calls++
	p.lastPrompt = prompt
	if p.failOn[p.calls] {
		return "I cannot answer in JSON, sorry.", nil
	}
	return fmt.Sprintf(`{"title": "Story %d", "domain": "Healthcare", "problem": "p", "pathway": "w", "solution": "s", "preview": "v"}`, p.calls), nil
}

func (p *seqProvider) IsConfigured() bool { return true }

type fakeSources struct {
	problems []scrape.ProblemLead
	pathways []scrape.Pathway
	research []scrape.Research
}

func (f *fakeSources) Problems(domains []string) []scrape.ProblemLead   { return f.problems }
func (f *fakeSources) Pathways(domains []string) []scrape.Pathway      { return f.pathways }
func (f *fakeSources) ResearchContext(domains []string) []scrape.Research {
	return f.research
}

func newTestPipeline(t *testing.T, provider *seqProvider, sources ContextSource) (*Pipeline, *problems.Repository, *stories.Store, string) {
	t.Helper()
	dir := t.TempDir()
	repo := problems.Open(filepath.Join(dir, "problem_database.json"))
	storyPath := filepath.Join(dir, "generated_stories.json")
	store := stories.NewStore(storyPath, filepath.Join(dir, "seed_stories.json"))
	weaver := synthesize.NewWeaver(provider, 600)
	return New(repo, store, weaver, sources), repo, store, storyPath
}

func addProblem(t *testing.T, repo *problems.Repository, domain, title string) *problems.Problem {
	t.Helper()
	p, err := repo.Add(domain, title, "description of "+title, "test", problems.SourceManual)
	if err != nil {
		t.Fatalf("Add(%q) error: %v", title, err)
	}
	return p
}

func TestRunGeneratesAndMarksProcessed(t *testing.T) {
	provider := &seqProvider{}
	p, repo, store, _ := newTestPipeline(t, provider, nil)

	addProblem(t, repo, "healthcare", "Problem one")
	addProblem(t, repo, "healthcare", "Problem two")
	addProblem(t, repo, "healthcare", "Problem three")

	r := p.Run(context.Background(), nil, 2)
	if err := r.Err(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(r.Generated) != 2 {
		t.Fatalf("generated %d stories, want 2", len(r.Generated))
	}
	if r.Persisted != 2 {
		t.Errorf("persisted = %d, want 2", r.Persisted)
	}
	if got := len(repo.Unprocessed()); got != 1 {
		t.Errorf("unprocessed after run = %d, want 1", got)
	}
	if got := len(store.Generated()); got != 2 {
		t.Errorf("stored stories = %d, want 2", got)
	}
}

func TestRunNoUnprocessedWritesNothing(t *testing.T) {
	provider := &seqProvider{}
	p, _, _, storyPath := newTestPipeline(t, provider, nil)

	r := p.Run(context.Background(), nil, 0)
	if len(r.Generated) != 0 || r.Selected != 0 {
		t.Fatalf("expected empty result, got %+v", r)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times on empty repository", provider.calls)
	}
	if _, err := os.Stat(storyPath); !os.IsNotExist(err) {
		t.Errorf("story file written on empty run")
	}
}

func TestRunSkipsFailedGeneration(t *testing.T) {
	provider := &seqProvider{failOn: map[int]bool{1: true}}
	p, repo, _, _ := newTestPipeline(t, provider, nil)

	addProblem(t, repo, "healthcare", "Problem one")
	addProblem(t, repo, "healthcare", "Problem two")

	r := p.Run(context.Background(), nil, 0)
	if r.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", r.Skipped)
	}
	if len(r.Generated) != 1 {
		t.Errorf("generated = %d, want 1", len(r.Generated))
	}
	// The failed problem stays unprocessed for the next run.
	if got := len(repo.Unprocessed()); got != 1 {
		t.Errorf("unprocessed after run = %d, want 1", got)
	}
}

func TestRunDomainFilter(t *testing.T) {
	provider := &seqProvider{}
	p, repo, _, _ := newTestPipeline(t, provider, nil)

	addProblem(t, repo, "healthcare", "Health problem")
	addProblem(t, repo, "climate", "Climate problem")

	r := p.Run(context.Background(), []string{"HEALTHCARE"}, 0)
	if r.Selected != 1 {
		t.Errorf("selected = %d, want 1", r.Selected)
	}
	if len(r.Generated) != 1 {
		t.Fatalf("generated = %d, want 1", len(r.Generated))
	}
	if got := len(repo.Unprocessed()); got != 1 {
		t.Errorf("unprocessed after run = %d, want 1", got)
	}
}

func TestRunPlaceholderContext(t *testing.T) {
	provider := &seqProvider{}
	p, repo, _, _ := newTestPipeline(t, provider, nil)

	addProblem(t, repo, "healthcare", "Problem one")
	p.Run(context.Background(), nil, 0)

	if !strings.Contains(provider.lastPrompt, "Sample Healthcare Solution") {
		t.Errorf("prompt missing placeholder pathway:\n%s", provider.lastPrompt)
	}
	if !strings.Contains(provider.lastPrompt, "Healthcare Research Insights") {
		t.Errorf("prompt missing placeholder research:\n%s", provider.lastPrompt)
	}
}

func TestRunScrapedContext(t *testing.T) {
	provider := &seqProvider{}
	sources := &fakeSources{
		pathways: []scrape.Pathway{{Domain: "healthcare", Name: "MedStartup", Description: "Remote triage tools", Source: "Product Hunt"}},
		research: []scrape.Research{{Domain: "healthcare", Title: "Triage at Scale", Abstract: "We study triage.", Source: "ArXiv"}},
	}
	p, repo, _, _ := newTestPipeline(t, provider, sources)

	addProblem(t, repo, "healthcare", "Problem one")
	p.Run(context.Background(), nil, 0)

	if !strings.Contains(provider.lastPrompt, "MedStartup") {
		t.Errorf("prompt missing scraped pathway:\n%s", provider.lastPrompt)
	}
	if !strings.Contains(provider.lastPrompt, "Triage at Scale") {
		t.Errorf("prompt missing scraped research:\n%s", provider.lastPrompt)
	}
}

func TestFullRunCapsPerDomain(t *testing.T) {
	provider := &seqProvider{}
	sources := &fakeSources{
		problems: []scrape.ProblemLead{
			{Domain: "healthcare", Title: "Lead one", Description: "d", Source: "Reddit"},
			{Domain: "healthcare", Title: "Lead two", Description: "d", Source: "Reddit"},
			{Domain: "healthcare", Title: "Lead three", Description: "d", Source: "Reddit"},
		},
		pathways: []scrape.Pathway{{Domain: "healthcare", Name: "S", Description: "d", Source: "Product Hunt"}},
	}
	p, _, store, _ := newTestPipeline(t, provider, sources)

	r := p.FullRun(context.Background(), []string{"healthcare"}, 2)
	if len(r.Generated) != 2 {
		t.Fatalf("generated = %d, want 2", len(r.Generated))
	}
	if got := len(store.Generated()); got != 2 {
		t.Errorf("stored stories = %d, want 2", got)
	}
}

func TestStoryIdentityAcrossRuns(t *testing.T) {
	provider := &seqProvider{}
	p, repo, store, _ := newTestPipeline(t, provider, nil)

	addProblem(t, repo, "healthcare", "Problem one")
	r1 := p.Run(context.Background(), nil, 0)
	if len(r1.Generated) != 1 {
		t.Fatalf("first run generated %d", len(r1.Generated))
	}
	firstID := store.Generated()[0].ID

	addProblem(t, repo, "healthcare", "Problem two")
	r2 := p.Run(context.Background(), nil, 0)
	if len(r2.Generated) != 1 {
		t.Fatalf("second run generated %d", len(r2.Generated))
	}

	got := store.Generated()
	if len(got) != 2 {
		t.Fatalf("stored stories = %d, want 2", len(got))
	}
	if got[1].ID <= firstID {
		t.Errorf("ids not monotonic: %d then %d", firstID, got[1].ID)
	}
}
