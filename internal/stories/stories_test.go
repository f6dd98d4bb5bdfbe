package stories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "generated.json"), filepath.Join(dir, "seed.json")), dir
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	store, _ := newTestStore(t)

	added, err := store.Append([]Story{{Title: "A"}, {Title: "B"}}, true)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	added, err = store.Append([]Story{{Title: "C"}}, true)
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}

	got := store.Generated()
	if len(got) != 3 {
		t.Fatalf("expected 3 stories, got %d", len(got))
	}
	seen := make(map[int]bool)
	for i, st := range got {
		if st.ID != i+1 {
			t.Errorf("expected id %d for story %q, got %d", i+1, st.Title, st.ID)
		}
		if seen[st.ID] {
			t.Errorf("duplicate id %d", st.ID)
		}
		seen[st.ID] = true
	}
}

func TestAppendDeduplicatesByTitle(t *testing.T) {
	store, _ := newTestStore(t)

	store.Append([]Story{{Title: "X", Problem: "original"}}, true)
	added, err := store.Append([]Story{{Title: "X", Problem: "regenerated"}, {Title: "Y"}}, true)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 added (duplicate dropped), got %d", added)
	}

	got := store.Generated()
	if len(got) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(got))
	}

	var x *Story
	for i := range got {
		if got[i].Title == "X" {
			if x != nil {
				t.Fatal("two stories titled X after append")
			}
			x = &got[i]
		}
	}
	if x == nil || x.Problem != "original" {
		t.Error("expected the pre-existing story to win the title conflict")
	}
}

func TestAppendNeverShrinks(t *testing.T) {
	store, _ := newTestStore(t)

	store.Append([]Story{{Title: "A"}, {Title: "B"}, {Title: "C"}}, true)
	before := len(store.Generated())

	store.Append([]Story{{Title: "A"}}, true)
	after := len(store.Generated())

	if after < before {
		t.Errorf("append reduced story count from %d to %d", before, after)
	}
}

func TestLoadSeedPrecedence(t *testing.T) {
	store, dir := newTestStore(t)

	store.Append([]Story{{Title: "Generated"}}, true)

	seed := []Story{{ID: 1, Title: "Seed Story"}}
	data, _ := json.Marshal(seed)
	if err := os.WriteFile(filepath.Join(dir, "seed.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	got := store.Load()
	if len(got) != 1 || got[0].Title != "Seed Story" {
		t.Errorf("expected seed file to take precedence, got %+v", got)
	}
}

func TestLoadFallsBackToGeneratedThenMock(t *testing.T) {
	store, _ := newTestStore(t)

	// Nothing on disk: built-in fallback set.
	if got := store.Load(); len(got) == 0 {
		t.Error("expected built-in fallback stories")
	}

	store.Append([]Story{{Title: "Generated"}}, true)
	got := store.Load()
	if len(got) != 1 || got[0].Title != "Generated" {
		t.Errorf("expected generated stories, got %+v", got)
	}
}

func TestLegacyBareArrayFile(t *testing.T) {
	store, dir := newTestStore(t)

	legacy := []Story{{ID: 7, Title: "Old"}}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(dir, "generated.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	added, err := store.Append([]Story{{Title: "New"}}, true)
	if err != nil {
		t.Fatalf("append over legacy file failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}

	got := store.Generated()
	if len(got) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(got))
	}
	// Counter continues past the legacy max id.
	if got[1].ID != 8 {
		t.Errorf("expected new story id 8, got %d", got[1].ID)
	}
}

func TestCorruptGeneratedFileStartsEmpty(t *testing.T) {
	store, dir := newTestStore(t)
	if err := os.WriteFile(filepath.Join(dir, "generated.json"), []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}

	added, err := store.Append([]Story{{Title: "A"}}, true)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 added, got %d", added)
	}
}
