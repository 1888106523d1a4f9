// pkg/ledger/ledger.go - durable record of installs performed by this
// tool, used to drive later uninstallation.

package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/progadmins/prospect/pkg/logging"
)

// Entry records one successful install. The ledger is this entry's sole
// writer; a later successful install of the same key overwrites it, and a
// successful uninstall removes it.
type Entry struct {
	ProgramKey       string    `json:"program_key"`
	DisplayName      string    `json:"display_name"`
	InstalledAt      time.Time `json:"installed_at"`
	InstallerPath    string    `json:"installer_path"`
	UninstallCommand string    `json:"uninstall_command,omitempty"`
	ProductCode      string    `json:"product_code,omitempty"`
	LastKnownVersion string    `json:"last_known_version,omitempty"`
}

// Ledger is a durable key-value store of Entries, one per program key,
// persisted as a single JSON document. Reads never fail the caller: a
// missing or corrupt file is treated as an empty ledger and logged.
// Writes replace the whole document atomically.
type Ledger struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
}

// Open loads the ledger at path. The file not existing yet is normal; a
// file that cannot be parsed is treated as empty with a warning, so a
// damaged ledger never takes the orchestrator down.
func Open(path string) *Ledger {
	l := &Ledger{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l
	}
	if err != nil {
		logging.Warn("ledger unreadable, treating as empty", "path", path, "error", err)
		return l
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		logging.Warn("ledger corrupt, treating as empty", "path", path, "error", err)
		l.entries = make(map[string]Entry)
	}
	return l
}

// Get returns the entry for a program key.
func (l *Ledger) Get(key string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key]
	return e, ok
}

// All returns every entry, sorted by program key.
func (l *Ledger) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProgramKey < out[j].ProgramKey })
	return out
}

// Put inserts or overwrites the entry for its program key and persists
// the whole store.
func (l *Ledger) Put(e Entry) error {
	if e.ProgramKey == "" {
		return fmt.Errorf("ledger entry has no program key")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, existed := l.entries[e.ProgramKey]
	l.entries[e.ProgramKey] = e
	if err := l.persist(); err != nil {
		// Roll back the in-memory state so it keeps mirroring disk.
		if existed {
			l.entries[e.ProgramKey] = prev
		} else {
			delete(l.entries, e.ProgramKey)
		}
		return err
	}
	return nil
}

// Remove deletes the entry for a program key, if present, and persists.
func (l *Ledger) Remove(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, existed := l.entries[key]
	if !existed {
		return nil
	}
	delete(l.entries, key)
	if err := l.persist(); err != nil {
		l.entries[key] = prev
		return err
	}
	return nil
}

// persist writes the document atomically: the new content lands under a
// temporary name and replaces the old file in one rename, so a crash
// mid-write never leaves a partial store. Caller holds the write lock.
func (l *Ledger) persist() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing ledger: %w", err)
	}
	if err := renameio.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}
	return nil
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}
