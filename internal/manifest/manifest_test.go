package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewManifest(t *testing.T) {
	m := New()

	if m.Schema != SchemaVersion {
		t.Errorf("Schema = %s, want %s", m.Schema, SchemaVersion)
	}
	if len(m.Entries) != 0 {
		t.Errorf("Entries should be empty, got %d", len(m.Entries))
	}
}

func TestPutThenLookupRoundTrips(t *testing.T) {
	m := New()
	m.Put("src/main.tml", "sha256:aaaa", "sha256:bbbb", "sha256:cccc", "/tmp/main.o")

	e, ok := m.Lookup("src/main.tml")
	if !ok {
		t.Fatalf("expected entry for src/main.tml")
	}
	if e.ID == "" {
		t.Errorf("expected Put to assign an id")
	}
	if e.SourceHash != "sha256:aaaa" {
		t.Errorf("SourceHash = %s, want sha256:aaaa", e.SourceHash)
	}
}

func TestPutTwiceReusesID(t *testing.T) {
	m := New()
	m.Put("src/main.tml", "sha256:aaaa", "sha256:bbbb", "sha256:cccc", "")
	first, _ := m.Lookup("src/main.tml")
	id := first.ID

	m.Put("src/main.tml", "sha256:dddd", "sha256:eeee", "sha256:cccc", "")
	second, _ := m.Lookup("src/main.tml")
	if second.ID != id {
		t.Errorf("id changed across Put calls: %s -> %s", id, second.ID)
	}
	if second.SourceHash != "sha256:dddd" {
		t.Errorf("SourceHash not updated: got %s", second.SourceHash)
	}
}

func TestHitRequiresBothHashesToMatch(t *testing.T) {
	e := &Entry{SourceHash: "sha256:aaaa", OptionsHash: "sha256:opt1"}

	if !Hit(e, "sha256:aaaa", "sha256:opt1") {
		t.Errorf("expected a hit when both hashes match")
	}
	if Hit(e, "sha256:bbbb", "sha256:opt1") {
		t.Errorf("expected a miss on source hash mismatch")
	}
	if Hit(e, "sha256:aaaa", "sha256:opt2") {
		t.Errorf("expected a miss on options hash mismatch")
	}
	if Hit(nil, "sha256:aaaa", "sha256:opt1") {
		t.Errorf("expected a miss on nil entry")
	}
}

func TestValidateRejectsDuplicateSourcePath(t *testing.T) {
	m := New()
	m.Entries = []Entry{
		{ID: "a", SourcePath: "x.tml", SourceHash: "sha256:1"},
		{ID: "b", SourcePath: "x.tml", SourceHash: "sha256:2"},
	}
	if err := m.Validate(); err == nil {
		t.Errorf("expected validation error for duplicate source path")
	}
}

func TestValidateRejectsUnsupportedSchema(t *testing.T) {
	m := New()
	m.Schema = "tmlc.build-cache/v2"
	if err := m.Validate(); err == nil {
		t.Errorf("expected validation error for unsupported schema")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.yaml")

	m := New()
	m.Put("src/main.tml", "sha256:aaaa", "sha256:bbbb", "sha256:cccc", "/tmp/main.o")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Statistics.Total != 1 {
		t.Errorf("Statistics.Total = %d, want 1", loaded.Statistics.Total)
	}
	e, ok := loaded.Lookup("src/main.tml")
	if !ok {
		t.Fatalf("expected loaded manifest to contain src/main.tml")
	}
	if e.ObjectPath != "/tmp/main.o" {
		t.Errorf("ObjectPath = %s, want /tmp/main.o", e.ObjectPath)
	}
}

func TestLoadMissingFileReturnsEmptyManifest(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not error, got %v", err)
	}
	if len(m.Entries) != 0 {
		t.Errorf("expected empty manifest, got %d entries", len(m.Entries))
	}
}

func TestHashBytesIsDeterministicAndPrefixed(t *testing.T) {
	h1 := HashBytes([]byte("hello"))
	h2 := HashBytes([]byte("hello"))
	if h1 != h2 {
		t.Errorf("HashBytes not deterministic: %s != %s", h1, h2)
	}
	if len(h1) < len("sha256:") || h1[:7] != "sha256:" {
		t.Errorf("HashBytes missing sha256: prefix: %s", h1)
	}
}

func TestHashOptionsDiffersByOptimizationLevel(t *testing.T) {
	a := HashOptions(0, false, false, "")
	b := HashOptions(2, false, false, "")
	if a == b {
		t.Errorf("expected different hashes for different optimization levels")
	}
}

func TestManifestSurvivesEmptyFilePermissionsCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.yaml")
	m := New()
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("expected non-empty manifest file")
	}
}
