package scrape

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
)

const githubSearchURL = "https://api.github.com/search/repositories"

// GitHubScraper pulls starred open-source projects as solution pathways via
// the public search API (unauthenticated).
type GitHubScraper struct {
	client    *http.Client
	perDomain int
}

// NewGitHubScraper creates a GitHub scraper.
func NewGitHubScraper(client *http.Client, perDomain int) *GitHubScraper {
	if perDomain <= 0 {
		perDomain = 5
	}
	return &GitHubScraper{client: client, perDomain: perDomain}
}

// Fetch scrapes top repositories per domain.
func (g *GitHubScraper) Fetch(domains []string) []Pathway {
	var projects []Pathway

	for _, domain := range domains {
		log.Printf("Scraping %s GitHub projects...", domain)

		repos, err := g.search(domain)
		if err != nil {
			log.Printf("Error scraping GitHub for %s: %v", domain, err)
			continue
		}

		for _, repo := range repos {
			description := repo.Description
			if description == "" {
				description = fmt.Sprintf("Open source %s project", domain)
			}

			projects = append(projects, Pathway{
				Domain:      titleWord(domain),
				Name:        repo.Name,
				Description: description,
				Source:      "GitHub",
				Stage:       fmt.Sprintf("Open Source (%d stars)", repo.Stars),
			})
		}
	}

	return projects
}

type githubRepo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	HTMLURL     string `json:"html_url"`
}

func (g *GitHubScraper) search(domain string) ([]githubRepo, error) {
	params := url.Values{
		"q":        {domain},
		"sort":     {"stars"},
		"per_page": {fmt.Sprintf("%d", g.perDomain)},
	}

	req, err := http.NewRequest("GET", githubSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned %d", resp.StatusCode)
	}

	var result struct {
		Items []githubRepo `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Items, nil
}
