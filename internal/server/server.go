// Package server exposes the story feed over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"storyforge/internal/enrich"
	"storyforge/internal/llm"
	"storyforge/internal/pipeline"
	"storyforge/internal/problems"
	"storyforge/internal/stories"
)

const version = "1.0.0"

// Server serves stories, search, chat and problem endpoints. The in-memory
// story list is shared between handlers and guarded by mu; it reloads from
// the store after generation or an explicit reload.
type Server struct {
	addr     string
	mux      *http.ServeMux
	repo     *problems.Repository
	store    *stories.Store
	provider llm.Provider
	enricher *enrich.Enricher
	cache    *enrich.Cache
	pipeline *pipeline.Pipeline
	domains  []string

	mu      sync.Mutex
	stories []stories.Story
}

// New builds a server over the given components. provider, enricher, cache
// and pipeline may be nil; the affected endpoints then serve fallbacks.
func New(addr string, repo *problems.Repository, store *stories.Store, provider llm.Provider, enricher *enrich.Enricher, cache *enrich.Cache, pl *pipeline.Pipeline, domains []string) *Server {
	s := &Server{
		addr:     addr,
		mux:      http.NewServeMux(),
		repo:     repo,
		store:    store,
		provider: provider,
		enricher: enricher,
		cache:    cache,
		pipeline: pl,
		domains:  domains,
	}
	s.stories = store.Load()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stories", s.handleStories)
	s.mux.HandleFunc("GET /stories/{id}", s.handleStory)
	s.mux.HandleFunc("GET /stories/{id}/enriched", s.handleEnriched)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /generate-stories", s.handleGenerate)
	s.mux.HandleFunc("POST /reload-stories", s.handleReload)
	s.mux.HandleFunc("GET /domains", s.handleDomains)
	s.mux.HandleFunc("POST /cache/clear", s.handleCacheClear)
	s.mux.HandleFunc("GET /problems", s.handleProblemStats)
	s.mux.HandleFunc("POST /problems", s.handleProblemAdd)
	s.mux.HandleFunc("POST /problems/{id}/vote", s.handleProblemVote)
}

// Handler returns the full handler chain including CORS.
func (s *Server) Handler() http.Handler {
	return cors(s.mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving story feed on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encoding response: %v", err)
	}
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Story not found"})
}

func (s *Server) snapshot() []stories.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stories.Story, len(s.stories))
	copy(out, s.stories)
	return out
}

func (s *Server) reload() int {
	loaded := s.store.Load()
	s.mu.Lock()
	s.stories = loaded
	s.mu.Unlock()
	return len(loaded)
}

func (s *Server) findStory(id int) (stories.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stories {
		if st.ID == id {
			return st, true
		}
	}
	return stories.Story{}, false
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := len(s.stories)
	s.mu.Unlock()

	source := "fallback"
	if s.store.HasGenerated() {
		source = "generated"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Opportunity story feed",
		"version":        version,
		"stories_loaded": count,
		"source":         source,
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong from backend"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := len(s.stories)
	s.mu.Unlock()

	_, storyErr := os.Stat(s.store.GeneratedPath())
	_, problemErr := os.Stat(s.repo.Path())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"stories_loaded": count,
		"llm_configured": s.provider != nil && s.provider.IsConfigured(),
		"story_file":     storyErr == nil,
		"problem_file":   problemErr == nil,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		notFound(w)
		return
	}
	story, ok := s.findStory(id)
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (s *Server) handleEnriched(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		notFound(w)
		return
	}
	story, ok := s.findStory(id)
	if !ok {
		notFound(w)
		return
	}
	if s.enricher == nil {
		writeJSON(w, http.StatusOK, map[string]any{"story": story, "enriched": false, "error": true})
		return
	}
	writeJSON(w, http.StatusOK, s.enricher.Enrich(r.Context(), story))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	all := s.snapshot()
	if query == "" {
		writeJSON(w, http.StatusOK, all)
		return
	}

	matched := filterStories(all, query)
	if len(matched) == 0 {
		matched = s.smartSearch(r.Context(), all, query)
	}
	writeJSON(w, http.StatusOK, matched)
}

// smartSearch asks the model which story domains fit the query when plain
// substring matching found nothing. All stories come back when the model is
// unavailable or unhelpful.
func (s *Server) smartSearch(ctx context.Context, all []stories.Story, query string) []stories.Story {
	if s.provider == nil || !s.provider.IsConfigured() {
		return all
	}

	domains := uniqueDomains(all)
	prompt := fmt.Sprintf(`A user searched a startup-opportunity feed for: %q

Available story domains: %s

Which domains are most relevant to the search? Respond with a JSON object like {"domains": ["Healthcare"]}. Use only the listed domains. Return only JSON.`,
		query, strings.Join(domains, ", "))

	text, err := s.provider.Generate(ctx, prompt, 200)
	if err != nil {
		log.Printf("Smart search failed: %v", err)
		return all
	}
	parsed := llm.ParseJSONResponse(text)
	if parsed == nil {
		return all
	}

	picked, _ := parsed["domains"].([]any)
	var out []stories.Story
	for _, d := range picked {
		name, _ := d.(string)
		for _, st := range all {
			if strings.EqualFold(st.Domain, name) {
				out = append(out, st)
			}
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

func filterStories(all []stories.Story, query string) []stories.Story {
	q := strings.ToLower(query)
	var out []stories.Story
	for _, st := range all {
		haystack := strings.ToLower(st.Title + " " + st.Preview + " " + st.Domain + " " + st.Problem + " " + st.Solution)
		if strings.Contains(haystack, q) {
			out = append(out, st)
		}
	}
	return out
}

func uniqueDomains(all []stories.Story) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, st := range all {
		key := strings.ToLower(st.Domain)
		if _, ok := seen[key]; !ok && st.Domain != "" {
			seen[key] = struct{}{}
			out = append(out, st.Domain)
		}
	}
	return out
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": uniqueDomains(s.snapshot())})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeJSON(w, http.StatusOK, map[string]any{"generated": 0, "message": "Generation pipeline not configured"})
		return
	}
	result := s.pipeline.Run(r.Context(), nil, 0)
	if result.Selected == 0 && !s.store.HasGenerated() {
		// Nothing queued and no generated file yet: cold start from scraped
		// sources for the configured domains.
		result = s.pipeline.FullRun(r.Context(), s.domains, 3)
	}
	if err := result.Err(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	total := s.reload()
	writeJSON(w, http.StatusOK, map[string]any{
		"generated":     len(result.Generated),
		"skipped":       result.Skipped,
		"total_stories": total,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"reloaded": s.reload()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"cleared": false})
		return
	}
	if err := s.cache.Clear(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true, "message": "Enrichment cache cleared"})
}

func (s *Server) handleProblemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.repo.Stats())
}

func (s *Server) handleProblemAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain      string `json:"domain"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Source      string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}
	if req.Title == "" || req.Domain == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "domain and title are required"})
		return
	}
	if req.Source == "" {
		req.Source = "API"
	}
	problem, err := s.repo.Add(req.Domain, req.Title, req.Description, req.Source, problems.SourceUserInput)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, problem)
}

func (s *Server) handleProblemVote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		req.Delta = 1
	}
	if s.repo.GetByID(id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Problem not found"})
		return
	}
	if err := s.repo.AddVote(id, req.Delta); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.repo.GetByID(id))
}
