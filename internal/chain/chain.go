// Package chain fingerprints the migration catalog for tamper
// detection. Every migration file gets a SHA-256 checksum, the
// checksums feed a merkle tree, and the root plus the per-file entries
// are persisted in vireo.lock. A migration edited after it was
// fingerprinted changes its leaf and therefore the root.
package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cbergoon/merkletree"
	"gopkg.in/yaml.v3"
)

// DefaultLockPath is where the fingerprint lives, next to vireo.yaml.
const DefaultLockPath = "vireo.lock"

// Entry is one fingerprinted migration file.
type Entry struct {
	Filename string `yaml:"file"`
	Checksum string `yaml:"sha256"`
}

// CalculateHash makes Entry a merkle tree leaf over its checksum.
func (e Entry) CalculateHash() ([]byte, error) {
	sum, err := hex.DecodeString(e.Checksum)
	if err != nil {
		return nil, fmt.Errorf("entry %s has malformed checksum: %w", e.Filename, err)
	}
	return sum, nil
}

// Equals compares leaves by checksum.
func (e Entry) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(Entry)
	if !ok {
		return false, fmt.Errorf("cannot compare Entry with %T", other)
	}
	return e.Checksum == o.Checksum, nil
}

// Fingerprint is the persisted catalog state.
type Fingerprint struct {
	Root    string  `yaml:"root"`
	Entries []Entry `yaml:"migrations"`
}

// Compute fingerprints every migration file (.yaml and .sql) in dir,
// sorted by filename so the root is deterministic. A missing or empty
// directory yields an empty fingerprint.
func Compute(dir string) (*Fingerprint, error) {
	entries, err := computeEntries(dir)
	if err != nil {
		return nil, err
	}

	fp := &Fingerprint{Entries: entries}
	if len(entries) == 0 {
		return fp, nil
	}

	leaves := make([]merkletree.Content, len(entries))
	for i, e := range entries {
		leaves[i] = e
	}
	tree, err := merkletree.NewTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog merkle tree: %w", err)
	}
	fp.Root = hex.EncodeToString(tree.MerkleRoot())
	return fp, nil
}

// Read loads a persisted fingerprint. Returns nil when the lock file
// does not exist.
func Read(path string) (*Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}
	var fp Fingerprint
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("failed to parse lock file %s: %w", path, err)
	}
	return &fp, nil
}

// Write persists the fingerprint.
func Write(path string, fp *Fingerprint) error {
	var buf bytes.Buffer
	if err := yaml.NewEncoder(&buf).Encode(fp); err != nil {
		return fmt.Errorf("failed to encode lock file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create lock file directory: %w", err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Drift is the structured comparison between the lock file and the
// catalog on disk. New migrations are normal; modified or removed ones
// mean history was rewritten.
type Drift struct {
	LockExists bool
	RootMatch  bool
	New        []string
	Modified   []string
	Removed    []string
	Verified   []string
}

// Clean reports whether nothing already fingerprinted was touched.
// Appending new migrations keeps the catalog clean.
func (d *Drift) Clean() bool {
	return len(d.Modified) == 0 && len(d.Removed) == 0
}

// Verify compares the catalog on disk against the persisted
// fingerprint.
func Verify(dir, lockPath string) (*Drift, error) {
	locked, err := Read(lockPath)
	if err != nil {
		return nil, err
	}

	current, err := Compute(dir)
	if err != nil {
		return nil, err
	}

	drift := &Drift{LockExists: locked != nil}
	if locked == nil {
		for _, e := range current.Entries {
			drift.New = append(drift.New, e.Filename)
		}
		return drift, nil
	}
	drift.RootMatch = locked.Root == current.Root

	lockedByName := make(map[string]string, len(locked.Entries))
	for _, e := range locked.Entries {
		lockedByName[e.Filename] = e.Checksum
	}

	onDisk := make(map[string]bool, len(current.Entries))
	for _, e := range current.Entries {
		onDisk[e.Filename] = true
		want, ok := lockedByName[e.Filename]
		switch {
		case !ok:
			drift.New = append(drift.New, e.Filename)
		case want != e.Checksum:
			drift.Modified = append(drift.Modified, e.Filename)
		default:
			drift.Verified = append(drift.Verified, e.Filename)
		}
	}
	for _, e := range locked.Entries {
		if !onDisk[e.Filename] {
			drift.Removed = append(drift.Removed, e.Filename)
		}
	}
	return drift, nil
}

// computeEntries checksums every migration file in dir, sorted by
// filename.
func computeEntries(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !isMigrationFile(de.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", de.Name(), err)
		}
		sum := sha256.Sum256(data)
		entries = append(entries, Entry{
			Filename: de.Name(),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return entries, nil
}

func isMigrationFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") ||
		strings.HasSuffix(name, ".yml") ||
		strings.HasSuffix(name, ".sql")
}
