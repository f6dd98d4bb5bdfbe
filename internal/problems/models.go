package problems

// Problem is a candidate pain-point record in the repository. The JSON field
// names follow the on-disk snapshot format, which predates this codebase.
type Problem struct {
	ID             string   `json:"id"`
	Domain         string   `json:"domain"`
	Title          string   `json:"title"`
	Description    string   `json:"problem"`
	Source         string   `json:"source"`
	SourceType     string   `json:"source_type"`
	AddedAt        string   `json:"added_at"`
	StoryGenerated bool     `json:"story_generated"`
	VoteCount      int      `json:"user_votes"`
	Tags           []string `json:"tags"`
}

// Stats contains aggregate repository statistics.
type Stats struct {
	Total        int            `json:"total_problems"`
	Unprocessed  int            `json:"unprocessed_problems"`
	ByDomain     map[string]int `json:"by_domain"`
	BySourceType map[string]int `json:"by_source_type"`
	TopVoted     []Problem      `json:"most_voted"`
}

// Source type labels used across the system.
const (
	SourceUserInput   = "user_input"
	SourceAIDiscovery = "ai_discovery"
	SourceChat        = "chat_suggestion"
	SourceManual      = "manual_entry"
	SourceScraper     = "scraper"
)
