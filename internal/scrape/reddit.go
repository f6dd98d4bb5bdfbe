package scrape

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// RedditScraper pulls problem leads from subreddit hot listings via the
// public JSON endpoints (no credentials needed).
type RedditScraper struct {
	client     *http.Client
	subreddits map[string][]string
	maxPosts   int
}

// NewRedditScraper creates a Reddit scraper over a domain→subreddits map.
func NewRedditScraper(client *http.Client, subreddits map[string][]string, maxPosts int) *RedditScraper {
	if maxPosts <= 0 {
		maxPosts = 10
	}
	return &RedditScraper{client: client, subreddits: subreddits, maxPosts: maxPosts}
}

// Fetch scrapes problem leads for the given domains. Subreddits with no
// mapping or failed requests are skipped.
func (r *RedditScraper) Fetch(domains []string) []ProblemLead {
	var leads []ProblemLead

	for _, domain := range domains {
		subs := r.subreddits[strings.ToLower(domain)]
		if len(subs) == 0 {
			continue
		}
		log.Printf("Scraping %s problems...", domain)

		for _, sub := range subs {
			posts, err := r.fetchListing(sub)
			if err != nil {
				log.Printf("Error scraping r/%s: %v", sub, err)
				continue
			}

			for _, post := range posts {
				text := strings.TrimSpace(post.Selftext)
				if len(text) <= 100 {
					// Link posts carry no selftext; try the linked page.
					if post.Selftext == "" && post.URL != "" {
						text = extractPageText(r.client, post.URL)
					}
					if len(text) <= 100 {
						continue
					}
				}
				if len(text) > 500 {
					text = text[:500] + "..."
				}

				leads = append(leads, ProblemLead{
					Domain:      titleWord(domain),
					Title:       post.Title,
					Description: text,
					Source:      "r/" + sub,
					URL:         "https://reddit.com" + post.Permalink,
					Score:       post.Score,
				})
			}
		}
	}

	return leads
}

type redditPost struct {
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Permalink string `json:"permalink"`
	URL       string `json:"url"`
	Score     int    `json:"score"`
}

func (r *RedditScraper) fetchListing(subreddit string) ([]redditPost, error) {
	url := fmt.Sprintf("https://www.reddit.com/r/%s/hot.json?limit=%d", subreddit, r.maxPosts)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned %d", resp.StatusCode)
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data redditPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// titleWord uppercases the first letter of a single-word domain label.
func titleWord(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
