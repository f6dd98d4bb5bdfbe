// Package problems holds the problem repository: an append-only collection of
// pain-point records with fingerprint-deduplicated inserts, persisted as a
// whole-file JSON snapshot.
package problems

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"storyforge/internal/fingerprint"
)

// tagVocabulary is the fixed keyword set problems are tagged against.
var tagVocabulary = []string{
	"ai", "mobile", "web", "data", "automation", "api", "ml", "blockchain",
	"iot", "cloud", "security", "social", "marketplace", "education",
}

const maxTags = 5

// Repository is the in-memory problem collection backed by a snapshot file.
// Every mutation rewrites the snapshot in full.
type Repository struct {
	path     string
	problems []Problem
}

// Open loads the repository from the snapshot at path. A missing or
// unreadable snapshot starts an empty repository; corruption is not fatal.
func Open(path string) *Repository {
	r := &Repository{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error reading problem database: %v", err)
		}
		log.Println("Starting new problem database")
		return r
	}

	if err := json.Unmarshal(data, &r.problems); err != nil {
		log.Printf("Problem database unreadable, starting empty: %v", err)
		r.problems = nil
		return r
	}

	log.Printf("Loaded %d problems from database", len(r.problems))
	return r
}

// Path returns the snapshot file path.
func (r *Repository) Path() string {
	return r.path
}

// Add inserts a new problem record. Inserting a (title, domain) pair whose
// fingerprint already exists is idempotent: the existing record is returned
// unchanged and nothing is written.
func (r *Repository) Add(domain, title, description, source, sourceType string) (*Problem, error) {
	id := fingerprint.Derive(title, domain)

	if existing := r.GetByID(id); existing != nil {
		log.Printf("Problem already exists: %s (ID: %s)", title, id)
		return existing, nil
	}

	p := Problem{
		ID:             id,
		Domain:         titleCase(domain),
		Title:          strings.TrimSpace(title),
		Description:    strings.TrimSpace(description),
		Source:         source,
		SourceType:     sourceType,
		AddedAt:        time.Now().Format(time.RFC3339),
		StoryGenerated: false,
		VoteCount:      0,
		Tags:           extractTags(title + " " + description),
	}

	r.problems = append(r.problems, p)
	if err := r.save(); err != nil {
		// Roll the in-memory append back so memory matches disk.
		r.problems = r.problems[:len(r.problems)-1]
		return nil, err
	}

	log.Printf("Added problem: %s (ID: %s)", p.Title, p.ID)
	return &r.problems[len(r.problems)-1], nil
}

// GetByID returns the problem with the given fingerprint, or nil.
func (r *Repository) GetByID(id string) *Problem {
	for i := range r.problems {
		if r.problems[i].ID == id {
			return &r.problems[i]
		}
	}
	return nil
}

// GetByDomain returns all problems in a domain, matched case-insensitively.
func (r *Repository) GetByDomain(domain string) []Problem {
	var out []Problem
	for _, p := range r.problems {
		if strings.EqualFold(p.Domain, domain) {
			out = append(out, p)
		}
	}
	return out
}

// All returns every problem in insertion order.
func (r *Repository) All() []Problem {
	out := make([]Problem, len(r.problems))
	copy(out, r.problems)
	return out
}

// Unprocessed returns problems without a generated story, in insertion order.
func (r *Repository) Unprocessed() []Problem {
	var out []Problem
	for _, p := range r.problems {
		if !p.StoryGenerated {
			out = append(out, p)
		}
	}
	return out
}

// MarkProcessed flags the problem as having a story. No-op for unknown ids.
func (r *Repository) MarkProcessed(id string) error {
	p := r.GetByID(id)
	if p == nil {
		return nil
	}
	p.StoryGenerated = true
	return r.save()
}

// AddVote adjusts a problem's vote count by delta. No-op for unknown ids.
func (r *Repository) AddVote(id string, delta int) error {
	p := r.GetByID(id)
	if p == nil {
		return nil
	}
	p.VoteCount += delta
	return r.save()
}

// Stats returns aggregate repository statistics.
func (r *Repository) Stats() Stats {
	s := Stats{
		Total:        len(r.problems),
		Unprocessed:  len(r.Unprocessed()),
		ByDomain:     make(map[string]int),
		BySourceType: make(map[string]int),
	}

	for _, p := range r.problems {
		domain := p.Domain
		if domain == "" {
			domain = "Unknown"
		}
		sourceType := p.SourceType
		if sourceType == "" {
			sourceType = "unknown"
		}
		s.ByDomain[domain]++
		s.BySourceType[sourceType]++
	}

	top := r.All()
	sort.SliceStable(top, func(i, j int) bool { return top[i].VoteCount > top[j].VoteCount })
	if len(top) > 3 {
		top = top[:3]
	}
	s.TopVoted = top

	return s
}

// save rewrites the snapshot. The write goes to a temp file in the same
// directory and is renamed into place, so a crash cannot truncate the
// snapshot mid-write.
func (r *Repository) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	records := r.problems
	if records == nil {
		records = []Problem{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding problem database: %w", err)
	}

	return writeAtomic(r.path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// extractTags matches the fixed vocabulary against the text, capped at 5.
func extractTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, keyword := range tagVocabulary {
		if strings.Contains(lower, keyword) {
			tags = append(tags, keyword)
			if len(tags) == maxTags {
				break
			}
		}
	}
	return tags
}

// titleCase canonicalizes a free-text domain label ("local services" ->
// "Local Services").
func titleCase(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
