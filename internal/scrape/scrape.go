// Package scrape holds the source adapters that feed the problem pipeline.
// Every adapter swallows its own failures: a broken source logs and returns
// fewer (or zero) records, never an error.
package scrape

import (
	"log"
	"net/http"
	"time"

	"storyforge/internal/config"
)

const userAgent = "storyforge/1.0 (opportunity scout)"

// ProblemLead is a raw pain-point record from a discussion source.
type ProblemLead struct {
	Domain      string
	Title       string
	Description string
	Source      string
	URL         string
	Score       int
}

// Pathway describes an existing attempt to address a problem, e.g. a
// startup or open-source project.
type Pathway struct {
	Domain      string
	Name        string
	Description string
	Source      string
	Stage       string
}

// Research is a research-paper record providing academic context.
type Research struct {
	Domain    string
	Title     string
	Abstract  string
	Approach  string
	Source    string
	Published string
}

// Batch groups everything one scraping pass produced.
type Batch struct {
	Problems []ProblemLead
	Pathways []Pathway
	Research []Research
}

// Scraper aggregates all configured source adapters.
type Scraper struct {
	reddit      *RedditScraper
	arxiv       *ArXivScraper
	github      *GitHubScraper
	producthunt *ProductHuntScraper
}

// New creates a scraper from the sources configuration.
func New(cfg *config.Config) *Scraper {
	client := &http.Client{Timeout: 10 * time.Second}

	s := &Scraper{}
	src := cfg.Sources
	if src.Reddit.Enabled {
		s.reddit = NewRedditScraper(client, src.Reddit.Subreddits, src.Reddit.MaxPosts)
	}
	if src.ArXiv.Enabled {
		s.arxiv = NewArXivScraper(src.ArXiv.Queries, src.ArXiv.MaxResults)
	}
	if src.GitHub.Enabled {
		s.github = NewGitHubScraper(client, src.GitHub.PerDomain)
	}
	if src.ProductHunt.Enabled {
		s.producthunt = NewProductHuntScraper(client)
	}
	return s
}

// ScrapeAll collects problems, pathways and research for the given domains
// from every enabled source. Startups and open-source projects both count as
// pathways; papers and curated research both count as research.
func (s *Scraper) ScrapeAll(domains []string) *Batch {
	log.Println("Scraping all data sources...")
	b := &Batch{}

	b.Problems = s.Problems(domains)
	b.Pathways = s.Pathways(domains)
	b.Research = s.ResearchContext(domains)

	log.Printf("Scraped: %d problems, %d pathways, %d research papers",
		len(b.Problems), len(b.Pathways), len(b.Research))
	return b
}

// Problems collects raw problem leads.
func (s *Scraper) Problems(domains []string) []ProblemLead {
	if s.reddit == nil {
		return nil
	}
	return s.reddit.Fetch(domains)
}

// Pathways collects existing-solution records.
func (s *Scraper) Pathways(domains []string) []Pathway {
	var out []Pathway
	if s.producthunt != nil {
		out = append(out, s.producthunt.Fetch(domains)...)
	}
	if s.github != nil {
		out = append(out, s.github.Fetch(domains)...)
	}
	return out
}

// ResearchContext collects research records.
func (s *Scraper) ResearchContext(domains []string) []Research {
	var out []Research
	if s.arxiv != nil {
		out = append(out, s.arxiv.Fetch(domains)...)
	}
	out = append(out, CuratedResearch(domains)...)
	return out
}
