package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"storyforge/internal/enrich"
	"storyforge/internal/llm"
	"storyforge/internal/pipeline"
	"storyforge/internal/problems"
	"storyforge/internal/stories"
	"storyforge/internal/synthesize"
)

type fakeProvider struct {
	response   string
	err        error
	configured bool
	lastPrompt string
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeProvider) IsConfigured() bool { return f.configured }

type testEnv struct {
	server *Server
	repo   *problems.Repository
	store  *stories.Store
	cache  *enrich.Cache
	ts     *httptest.Server
}

func newTestEnv(t *testing.T, provider *fakeProvider) *testEnv {
	t.Helper()
	dir := t.TempDir()

	repo := problems.Open(filepath.Join(dir, "problem_database.json"))
	store := stories.NewStore(filepath.Join(dir, "generated_stories.json"), filepath.Join(dir, "seed_stories.json"))
	if _, err := store.Append([]stories.Story{
		{Title: "Rural telehealth kiosks", Domain: "Healthcare", Problem: "Villages lack specialists", Pathway: "Urban apps only", Solution: "Kiosk network", Preview: "Bring doctors to villages"},
		{Title: "Carbon ledgers for shops", Domain: "Climate", Problem: "SMBs cannot track emissions", Pathway: "Enterprise tools", Solution: "One-click ledger", Preview: "Simple carbon accounting"},
	}, false); err != nil {
		t.Fatalf("seeding stories: %v", err)
	}

	cache := enrich.NewCache(filepath.Join(dir, "enriched_stories.json"))
	enricher := enrich.NewEnricher(asProvider(provider), cache)
	weaver := synthesize.NewWeaver(asProvider(provider), 600)
	pl := pipeline.New(repo, store, weaver, nil)

	srv := New(":0", repo, store, asProvider(provider), enricher, cache, pl, []string{"healthcare", "climate"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: srv, repo: repo, store: store, cache: cache, ts: ts}
}

// asProvider keeps a nil *fakeProvider from becoming a non-nil interface.
func asProvider(f *fakeProvider) llm.Provider {
	if f == nil {
		return nil
	}
	return f
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRootAndPing(t *testing.T) {
	env := newTestEnv(t, nil)

	var root map[string]any
	if code := getJSON(t, env.ts.URL+"/", &root); code != http.StatusOK {
		t.Fatalf("root status = %d", code)
	}
	if root["stories_loaded"].(float64) != 2 {
		t.Errorf("stories_loaded = %v", root["stories_loaded"])
	}
	if root["source"] != "generated" {
		t.Errorf("source = %v", root["source"])
	}

	var ping map[string]string
	getJSON(t, env.ts.URL+"/ping", &ping)
	if ping["message"] != "pong from backend" {
		t.Errorf("ping = %q", ping["message"])
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	var h map[string]any
	getJSON(t, env.ts.URL+"/health", &h)
	if h["status"] != "healthy" {
		t.Errorf("status = %v", h["status"])
	}
	if h["llm_configured"] != false {
		t.Errorf("llm_configured = %v", h["llm_configured"])
	}
	if h["story_file"] != true {
		t.Errorf("story_file = %v", h["story_file"])
	}
}

func TestStoriesAndStoryByID(t *testing.T) {
	env := newTestEnv(t, nil)

	var list []stories.Story
	getJSON(t, env.ts.URL+"/stories", &list)
	if len(list) != 2 {
		t.Fatalf("got %d stories", len(list))
	}

	var one stories.Story
	if code := getJSON(t, env.ts.URL+"/stories/1", &one); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if one.Title != "Rural telehealth kiosks" {
		t.Errorf("title = %q", one.Title)
	}

	var detail map[string]string
	if code := getJSON(t, env.ts.URL+"/stories/999", &detail); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if detail["detail"] != "Story not found" {
		t.Errorf("detail = %q", detail["detail"])
	}
}

func TestSearchSubstring(t *testing.T) {
	env := newTestEnv(t, nil)

	var hits []stories.Story
	getJSON(t, env.ts.URL+"/search?q=carbon", &hits)
	if len(hits) != 1 || hits[0].Domain != "Climate" {
		t.Fatalf("hits = %+v", hits)
	}

	// Empty query returns everything.
	var all []stories.Story
	getJSON(t, env.ts.URL+"/search?q=", &all)
	if len(all) != 2 {
		t.Errorf("empty query returned %d stories", len(all))
	}
}

func TestSearchSmartFallback(t *testing.T) {
	provider := &fakeProvider{configured: true, response: `{"domains": ["Healthcare"]}`}
	env := newTestEnv(t, provider)

	var hits []stories.Story
	getJSON(t, env.ts.URL+"/search?q=xyzzy", &hits)
	if len(hits) != 1 || hits[0].Domain != "Healthcare" {
		t.Fatalf("smart search hits = %+v", hits)
	}
	if !strings.Contains(provider.lastPrompt, "xyzzy") {
		t.Errorf("query missing from prompt")
	}
}

func TestSearchSmartFallbackUnhelpfulModel(t *testing.T) {
	provider := &fakeProvider{configured: true, err: errors.New("timeout")}
	env := newTestEnv(t, provider)

	var hits []stories.Story
	getJSON(t, env.ts.URL+"/search?q=xyzzy", &hits)
	if len(hits) != 2 {
		t.Errorf("expected all stories on model failure, got %d", len(hits))
	}
}

func TestChatTemplateFallback(t *testing.T) {
	env := newTestEnv(t, nil)

	var resp map[string]string
	code := postJSON(t, env.ts.URL+"/chat", `{"message": "What is the problem here?", "storyId": 1}`, &resp)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(resp["response"], "Villages lack specialists") {
		t.Errorf("response = %q", resp["response"])
	}
	if resp["timestamp"] == "" {
		t.Errorf("missing timestamp")
	}
}

func TestChatUnknownStory(t *testing.T) {
	env := newTestEnv(t, nil)
	var detail map[string]string
	if code := postJSON(t, env.ts.URL+"/chat", `{"message": "hi", "storyId": 999}`, &detail); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if detail["detail"] != "Story not found" {
		t.Errorf("detail = %q", detail["detail"])
	}
}

func TestChatRecordsSuggestion(t *testing.T) {
	env := newTestEnv(t, nil)
	postJSON(t, env.ts.URL+"/chat", `{"message": "My problem is finding parking near hospitals", "storyId": 1}`, nil)
	all := env.repo.All()
	if len(all) != 1 {
		t.Fatalf("repository holds %d problems, want 1", len(all))
	}
	if all[0].SourceType != problems.SourceChat {
		t.Errorf("source_type = %q", all[0].SourceType)
	}
}

func TestChatUsesProvider(t *testing.T) {
	provider := &fakeProvider{configured: true, response: "Start by interviewing rural clinics."}
	env := newTestEnv(t, provider)

	var resp map[string]string
	postJSON(t, env.ts.URL+"/chat", `{"message": "How do I start?", "storyId": 1}`, &resp)
	if resp["response"] != "Start by interviewing rural clinics." {
		t.Errorf("response = %q", resp["response"])
	}
	if !strings.Contains(provider.lastPrompt, "Rural telehealth kiosks") {
		t.Errorf("story context missing from prompt")
	}
}

func TestDomains(t *testing.T) {
	env := newTestEnv(t, nil)
	var resp map[string][]string
	getJSON(t, env.ts.URL+"/domains", &resp)
	if len(resp["domains"]) != 2 {
		t.Errorf("domains = %v", resp["domains"])
	}
}

func TestGenerateStoriesReloads(t *testing.T) {
	provider := &fakeProvider{configured: true, response: `{"title": "Fresh story", "domain": "Healthcare", "problem": "p", "pathway": "w", "solution": "s", "preview": "v"}`}
	env := newTestEnv(t, provider)

	if _, err := env.repo.Add("healthcare", "Unprocessed problem", "desc", "test", problems.SourceManual); err != nil {
		t.Fatal(err)
	}

	var resp map[string]any
	if code := postJSON(t, env.ts.URL+"/generate-stories", `{}`, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp["generated"].(float64) != 1 {
		t.Errorf("generated = %v", resp["generated"])
	}
	if resp["total_stories"].(float64) != 3 {
		t.Errorf("total_stories = %v", resp["total_stories"])
	}

	// The new story is now served.
	var one stories.Story
	if code := getJSON(t, env.ts.URL+"/stories/3", &one); code != http.StatusOK {
		t.Fatalf("new story not served, status = %d", code)
	}
}

func TestReloadStories(t *testing.T) {
	env := newTestEnv(t, nil)
	var resp map[string]any
	postJSON(t, env.ts.URL+"/reload-stories", `{}`, &resp)
	if resp["reloaded"].(float64) != 2 {
		t.Errorf("reloaded = %v", resp["reloaded"])
	}
}

func TestEnrichedStory(t *testing.T) {
	provider := &fakeProvider{configured: true, response: "## Market Landscape\n\nRural care is underserved."}
	env := newTestEnv(t, provider)

	var payload enrich.EnrichedStory
	if code := getJSON(t, env.ts.URL+"/stories/1/enriched", &payload); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !payload.Enriched {
		t.Errorf("not enriched: %+v", payload)
	}
	if env.cache.Len() != 1 {
		t.Errorf("cache len = %d", env.cache.Len())
	}

	if code := getJSON(t, env.ts.URL+"/stories/999/enriched", nil); code != http.StatusNotFound {
		t.Errorf("unknown story status = %d", code)
	}
}

func TestCacheClear(t *testing.T) {
	provider := &fakeProvider{configured: true, response: "## Risks\n\nSome."}
	env := newTestEnv(t, provider)
	getJSON(t, env.ts.URL+"/stories/1/enriched", nil)

	var resp map[string]any
	postJSON(t, env.ts.URL+"/cache/clear", `{}`, &resp)
	if resp["cleared"] != true {
		t.Errorf("cleared = %v", resp["cleared"])
	}
	if env.cache.Len() != 0 {
		t.Errorf("cache len = %d after clear", env.cache.Len())
	}
}

func TestProblemEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	var added problems.Problem
	code := postJSON(t, env.ts.URL+"/problems", `{"domain": "healthcare", "title": "No cold chain", "description": "Vaccines spoil in transit"}`, &added)
	if code != http.StatusOK {
		t.Fatalf("add status = %d", code)
	}
	if added.ID == "" || added.SourceType != problems.SourceUserInput {
		t.Errorf("added = %+v", added)
	}

	var voted problems.Problem
	if code := postJSON(t, env.ts.URL+"/problems/"+added.ID+"/vote", `{"delta": 1}`, &voted); code != http.StatusOK {
		t.Fatalf("vote status = %d", code)
	}
	if voted.VoteCount != 1 {
		t.Errorf("votes = %d", voted.VoteCount)
	}

	if code := postJSON(t, env.ts.URL+"/problems/nope/vote", `{}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown vote status = %d", code)
	}

	var stats problems.Stats
	getJSON(t, env.ts.URL+"/problems", &stats)
	if stats.Total != 1 {
		t.Errorf("stats total = %d", stats.Total)
	}

	if code := postJSON(t, env.ts.URL+"/problems", `{"domain": "healthcare"}`, nil); code != http.StatusBadRequest {
		t.Errorf("missing title status = %d", code)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, env.ts.URL+"/stories", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
