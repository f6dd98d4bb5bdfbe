// Package enrich computes and caches deep-dive story analysis. The cache is
// an owned object with an explicit lifecycle: lazy load from the persisted
// blob, write-through on update, invalidate on clear.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"storyforge/internal/llm"
	"storyforge/internal/stories"
)

const analysisPrompt = `You are a startup analyst. Write a deep-dive analysis of this opportunity story in markdown.

STORY: %s
DOMAIN: %s
PROBLEM: %s
CURRENT PATHWAY: %s
PROPOSED SOLUTION: %s

Cover these sections with ## headings:
- Market Landscape: who is affected and what they use today
- Execution Plan: concrete first steps for a small team
- Risks: the main ways this fails
- Skills Needed: what the builders must know or learn

Keep it under 400 words. Return only the markdown.`

// Enrichment is the generated analysis in both source and rendered form.
type Enrichment struct {
	Analysis     string `json:"analysis"`
	AnalysisHTML string `json:"analysis_html"`
}

// EnrichedStory is the cached payload served for a story: the story itself
// plus analysis and status flags. Error is set on the fallback payload when
// generation failed.
type EnrichedStory struct {
	Story      stories.Story `json:"story"`
	Enrichment Enrichment    `json:"enrichment"`
	Enriched   bool          `json:"enriched"`
	Error      bool          `json:"error,omitempty"`
	CachedAt   string        `json:"cached_at"`
}

// Cache persists enriched stories as a single JSON blob. It has no bound;
// entries live until Clear.
type Cache struct {
	mu      sync.Mutex
	path    string
	loaded  bool
	entries map[int]EnrichedStory
}

// NewCache creates a cache backed by the blob at path. Nothing is read until
// first use.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.entries = make(map[int]EnrichedStory)

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		log.Printf("Enrichment cache at %s is corrupt, starting empty: %v", c.path, err)
		c.entries = make(map[int]EnrichedStory)
	}
}

// Get returns the cached payload for a story id.
func (c *Cache) Get(id int) (EnrichedStory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	e, ok := c.entries[id]
	return e, ok
}

// Put stores a payload and writes the blob through to disk.
func (c *Cache) Put(id int, e EnrichedStory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	c.entries[id] = e
	return c.write()
}

// Clear drops all entries from memory and removes the blob file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.entries = make(map[int]EnrichedStory)
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing enrichment cache: %w", err)
	}
	return nil
}

// Len reports how many stories are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	return len(c.entries)
}

func (c *Cache) write() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".enrich-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

// Enricher generates analysis payloads and keeps them in the cache.
type Enricher struct {
	provider  llm.Provider
	cache     *Cache
	maxTokens int
	markdown  goldmark.Markdown
}

// NewEnricher creates an enricher over the given provider and cache.
func NewEnricher(provider llm.Provider, cache *Cache) *Enricher {
	return &Enricher{
		provider:  provider,
		cache:     cache,
		maxTokens: 800,
		markdown:  goldmark.New(),
	}
}

// Enrich returns the enriched payload for a story, generating and caching it
// on first request. Generation failure yields an uncached fallback payload
// with the error flag set, so a later request can retry.
func (e *Enricher) Enrich(ctx context.Context, story stories.Story) EnrichedStory {
	if cached, ok := e.cache.Get(story.ID); ok {
		return cached
	}

	now := time.Now().Format(time.RFC3339)
	if e.provider == nil || !e.provider.IsConfigured() {
		return fallback(story, now)
	}

	prompt := fmt.Sprintf(analysisPrompt, story.Title, story.Domain, story.Problem, story.Pathway, story.Solution)
	text, err := e.provider.Generate(ctx, prompt, e.maxTokens)
	if err != nil || text == "" {
		log.Printf("Enrichment failed for story %d: %v", story.ID, err)
		return fallback(story, now)
	}

	var html bytes.Buffer
	if err := e.markdown.Convert([]byte(text), &html); err != nil {
		log.Printf("Rendering enrichment for story %d: %v", story.ID, err)
		return fallback(story, now)
	}

	payload := EnrichedStory{
		Story:      story,
		Enrichment: Enrichment{Analysis: text, AnalysisHTML: html.String()},
		Enriched:   true,
		CachedAt:   now,
	}
	if err := e.cache.Put(story.ID, payload); err != nil {
		log.Printf("Caching enrichment for story %d: %v", story.ID, err)
	}
	return payload
}

func fallback(story stories.Story, now string) EnrichedStory {
	return EnrichedStory{
		Story: story,
		Enrichment: Enrichment{
			Analysis: "Detailed analysis is not available right now. The story preview and solution above still apply.",
		},
		Enriched: false,
		Error:    true,
		CachedAt: now,
	}
}
