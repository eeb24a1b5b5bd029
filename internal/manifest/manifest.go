// Package manifest tracks the build cache: which source files were
// compiled into which cached MIR blobs, so a rebuild can skip
// anything whose content hash hasn't changed.
//
// Grounded on the teacher's internal/manifest/manifest.go (New/Load/
// Save/Validate/UpdateStatistics shape, SHA-256 digest calculation),
// generalized from example-status tracking to build-cache bookkeeping
// per SPEC_FULL.md §10. The on-disk format switches from the
// teacher's JSON to YAML because this manifest is a once-per-build
// config file rather than a generated report other tooling consumes —
// the same role internal/eval_harness/spec.go's yaml.v3-decoded
// EvalSpec plays in the teacher.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SchemaVersion identifies the manifest format this package reads
// and writes.
const SchemaVersion = "tmlc.build-cache/v1"

// Entry records one cached compilation unit: a source file's content
// hash, the cache id of its serialized MIR, and the backend options
// it was compiled under (a cache hit requires both hash and options
// to match, since optimization level/debug info change the output).
type Entry struct {
	ID          string    `yaml:"id"`
	SourcePath  string    `yaml:"source_path"`
	SourceHash  string    `yaml:"source_hash"`
	MIRHash     string    `yaml:"mir_hash"`
	OptionsHash string    `yaml:"options_hash"`
	ObjectPath  string    `yaml:"object_path,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Statistics summarizes cache effectiveness for a single build.
type Statistics struct {
	Total  int `yaml:"total"`
	Hits   int `yaml:"hits"`
	Misses int `yaml:"misses"`
}

// Manifest is the build cache's on-disk index.
type Manifest struct {
	Schema      string     `yaml:"schema"`
	GeneratedAt time.Time  `yaml:"generated_at"`
	Entries     []Entry    `yaml:"entries"`
	Statistics  Statistics `yaml:"statistics"`
}

// New returns an empty manifest ready to accumulate entries.
func New() *Manifest {
	return &Manifest{
		Schema:      SchemaVersion,
		GeneratedAt: time.Now().UTC(),
		Entries:     []Entry{},
	}
}

// Load reads and validates a manifest from path. A missing file is
// not an error: it just means there is no cache yet.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest: validating %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the manifest to path, recomputing Statistics first and
// sorting entries by source path for a deterministic diff.
func (m *Manifest) Save(path string) error {
	m.UpdateStatistics()
	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].SourcePath < m.Entries[j].SourcePath
	})

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshaling: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks internal consistency: no duplicate source paths,
// every entry has a hash and an id.
func (m *Manifest) Validate() error {
	if m.Schema != "" && m.Schema != SchemaVersion {
		return fmt.Errorf("unsupported manifest schema: %s (expected %s)", m.Schema, SchemaVersion)
	}
	seen := make(map[string]bool, len(m.Entries))
	for _, e := range m.Entries {
		if seen[e.SourcePath] {
			return fmt.Errorf("duplicate cache entry for %s", e.SourcePath)
		}
		seen[e.SourcePath] = true
		if e.SourceHash == "" {
			return fmt.Errorf("entry %s missing source_hash", e.SourcePath)
		}
		if e.ID == "" {
			return fmt.Errorf("entry %s missing id", e.SourcePath)
		}
	}
	return nil
}

// UpdateStatistics recomputes Statistics.Total from the entry count.
// Hits/Misses are left as they are: the manifest itself has no notion
// of "this build" versus "all builds ever recorded".
func (m *Manifest) UpdateStatistics() {
	m.Statistics.Total = len(m.Entries)
}

// Lookup finds the cache entry for sourcePath, if any.
func (m *Manifest) Lookup(sourcePath string) (*Entry, bool) {
	for i := range m.Entries {
		if m.Entries[i].SourcePath == sourcePath {
			return &m.Entries[i], true
		}
	}
	return nil, false
}

// Hit reports whether a cached entry is still valid for the given
// source content and compile options.
func Hit(e *Entry, sourceHash, optionsHash string) bool {
	return e != nil && e.SourceHash == sourceHash && e.OptionsHash == optionsHash
}

// Put records or replaces the cache entry for sourcePath, assigning
// it a fresh id if this is a new entry.
func (m *Manifest) Put(sourcePath, sourceHash, mirHash, optionsHash, objectPath string) {
	if e, ok := m.Lookup(sourcePath); ok {
		e.SourceHash = sourceHash
		e.MIRHash = mirHash
		e.OptionsHash = optionsHash
		e.ObjectPath = objectPath
		e.CreatedAt = time.Now().UTC()
		return
	}
	m.Entries = append(m.Entries, Entry{
		ID:          uuid.NewString(),
		SourcePath:  sourcePath,
		SourceHash:  sourceHash,
		MIRHash:     mirHash,
		OptionsHash: optionsHash,
		ObjectPath:  objectPath,
		CreatedAt:   time.Now().UTC(),
	})
}

// HashBytes returns the cache key for a blob of content: a
// "sha256:" prefixed hex digest, matching the teacher's
// calculateSchemaDigest convention.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// HashOptions derives a stable key from the parts of codegen.Options
// that change what gets emitted for otherwise-identical MIR, so a
// cache entry compiled at -O0 is never handed back for a -O2 request.
func HashOptions(optimizationLevel int, debugInfo, coverageEnabled bool, targetTriple string) string {
	s := fmt.Sprintf("opt=%d;debug=%v;coverage=%v;target=%s", optimizationLevel, debugInfo, coverageEnabled, targetTriple)
	return HashBytes([]byte(s))
}
