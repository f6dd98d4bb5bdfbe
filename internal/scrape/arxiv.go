package scrape

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

const arxivAPIBase = "http://export.arxiv.org/api/query"

// ArXivScraper pulls recent papers from the ArXiv API, which serves Atom
// feeds, via gofeed.
type ArXivScraper struct {
	queries    map[string][]string
	maxResults int
	parser     *gofeed.Parser
}

// NewArXivScraper creates an ArXiv scraper over a domain→queries map.
func NewArXivScraper(queries map[string][]string, maxResults int) *ArXivScraper {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &ArXivScraper{
		queries:    queries,
		maxResults: maxResults,
		parser:     gofeed.NewParser(),
	}
}

// Fetch scrapes recent papers for the given domains. A domain with no
// configured queries falls back to querying the domain name itself.
func (a *ArXivScraper) Fetch(domains []string) []Research {
	var papers []Research

	for _, domain := range domains {
		queries := a.queries[strings.ToLower(domain)]
		if len(queries) == 0 {
			queries = []string{domain}
		}
		log.Printf("Scraping %s research papers...", domain)

		for _, query := range queries {
			feed, err := a.parser.ParseURL(a.queryURL(query))
			if err != nil {
				log.Printf("Error scraping ArXiv for %s/%s: %v", domain, query, err)
				continue
			}

			for _, item := range feed.Items {
				title := strings.Join(strings.Fields(item.Title), " ")
				if title == "" {
					continue
				}

				abstract := strings.Join(strings.Fields(item.Description), " ")
				if len(abstract) > 300 {
					abstract = abstract[:300] + "..."
				}

				published := ""
				if item.PublishedParsed != nil {
					published = item.PublishedParsed.Format("2006-01-02")
				}

				papers = append(papers, Research{
					Domain:    titleWord(domain),
					Title:     title,
					Abstract:  abstract,
					Approach:  fmt.Sprintf("Academic research exploring %s applications through %s methodologies.", domain, query),
					Source:    "ArXiv",
					Published: published,
				})
			}
		}
	}

	return papers
}

func (a *ArXivScraper) queryURL(query string) string {
	params := url.Values{
		"search_query": {"all:" + query},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", a.maxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	return arxivAPIBase + "?" + params.Encode()
}
