// Package stories persists generated opportunity stories as JSON snapshots.
//
// Two files participate: a larger curated seed set and the incrementally
// generated output. The seed set wins when both exist. Appends are additive
// and deduplicate by title; story ids come from a monotonic counter persisted
// in the generated file.
package stories

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Story is a generated narrative combining a problem with optional
// solution-pathway and research context. Never mutated after creation.
type Story struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Domain      string  `json:"domain"`
	Problem     string  `json:"problem"`
	Pathway     string  `json:"pathway"`
	Solution    string  `json:"solution"`
	Preview     string  `json:"preview"`
	GeneratedAt string  `json:"generated_at,omitempty"`
	Sources     Sources `json:"sources,omitempty"`
}

// Sources records the provenance labels of a story's three inputs.
type Sources struct {
	ProblemSource  string `json:"problem_source,omitempty"`
	PathwaySource  string `json:"pathway_source,omitempty"`
	ResearchSource string `json:"research_source,omitempty"`
}

// snapshot is the on-disk envelope of the generated file. Older files are a
// bare story array; both forms decode.
type snapshot struct {
	NextID  int     `json:"next_id"`
	Stories []Story `json:"stories"`
}

// Store reads and writes the story files.
type Store struct {
	genPath  string
	seedPath string
}

// NewStore creates a story store over the generated and seed file paths.
func NewStore(genPath, seedPath string) *Store {
	return &Store{genPath: genPath, seedPath: seedPath}
}

// Load returns the active story set: the curated seed file when present,
// otherwise the generated file, otherwise the built-in fallback set.
func (s *Store) Load() []Story {
	if seed := readStoryFile(s.seedPath); len(seed) > 0 {
		log.Printf("Loaded %d seed stories", len(seed))
		return seed
	}

	if gen := readStoryFile(s.genPath); len(gen) > 0 {
		log.Printf("Loaded %d generated stories", len(gen))
		return gen
	}

	log.Println("No story files found, using built-in fallback stories")
	return fallbackStories()
}

// GeneratedPath returns the path of the generated story file.
func (s *Store) GeneratedPath() string {
	return s.genPath
}

// Generated returns only the generated file's stories.
func (s *Store) Generated() []Story {
	return readStoryFile(s.genPath)
}

// HasGenerated reports whether the generated story file exists.
func (s *Store) HasGenerated() bool {
	_, err := os.Stat(s.genPath)
	return err == nil
}

// Append merges new stories into the generated file. With appendMode the
// existing stories are kept and a new story whose title already exists is
// dropped; without it the file is replaced. Stories without an id are
// assigned one from the persisted counter. Returns the number of stories
// actually added.
func (s *Store) Append(newStories []Story, appendMode bool) (int, error) {
	var existing []Story
	nextID := 1

	if appendMode {
		snap := readSnapshot(s.genPath)
		existing = snap.Stories
		nextID = snap.NextID
		if len(existing) > 0 {
			log.Printf("Found %d existing stories", len(existing))
		}
	}

	seenTitles := make(map[string]struct{}, len(existing))
	for _, st := range existing {
		seenTitles[st.Title] = struct{}{}
	}

	var added []Story
	for _, st := range newStories {
		if _, dup := seenTitles[st.Title]; dup {
			log.Printf("Skipping duplicate story title: %s", st.Title)
			continue
		}
		seenTitles[st.Title] = struct{}{}
		if st.ID == 0 {
			st.ID = nextID
			nextID++
		} else if st.ID >= nextID {
			nextID = st.ID + 1
		}
		added = append(added, st)
	}

	all := append(existing, added...)
	if err := s.write(snapshot{NextID: nextID, Stories: all}); err != nil {
		return 0, err
	}

	log.Printf("Saved %d total stories (%d new, %d existing)", len(all), len(added), len(existing))
	return len(added), nil
}

// SaveSeed replaces the curated seed file. Seed stories are a bare array,
// numbered from 1; Load prefers them over generated stories.
func (s *Store) SaveSeed(seed []Story) error {
	for i := range seed {
		if seed[i].ID == 0 {
			seed[i].ID = i + 1
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.seedPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding seed stories: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.seedPath), filepath.Base(s.seedPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp seed file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing seed stories: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing seed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.seedPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing seed file: %w", err)
	}
	return nil
}

func (s *Store) write(snap snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.genPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if snap.Stories == nil {
		snap.Stories = []Story{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.genPath), filepath.Base(s.genPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp story file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing stories: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing story file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.genPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing story file: %w", err)
	}
	return nil
}

// readSnapshot decodes the generated file, accepting both the envelope form
// and the legacy bare-array form. Unreadable files yield an empty snapshot.
func readSnapshot(path string) snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot{NextID: 1}
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err == nil && (snap.NextID > 0 || snap.Stories != nil) {
		if snap.NextID < 1 {
			snap.NextID = maxID(snap.Stories) + 1
		}
		return snap
	}

	var bare []Story
	if err := json.Unmarshal(data, &bare); err == nil {
		return snapshot{NextID: maxID(bare) + 1, Stories: bare}
	}

	log.Printf("Error reading existing stories from %s, starting empty", path)
	return snapshot{NextID: 1}
}

func readStoryFile(path string) []Story {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var bare []Story
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err == nil {
		return snap.Stories
	}

	log.Printf("Error loading stories from %s: unreadable file", path)
	return nil
}

func maxID(stories []Story) int {
	max := 0
	for _, st := range stories {
		if st.ID > max {
			max = st.ID
		}
	}
	return max
}
