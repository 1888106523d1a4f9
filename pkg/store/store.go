// pkg/store/store.go - read-only access to the system state store of
// installed software.

package store

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is a read-only key/path lookup interface over the host's record
// of installed software. On Windows this is the registry; elsewhere it
// can be any persisted key-value representation.
type Store interface {
	// Exists reports whether the path exists under the root.
	Exists(root, path string) (bool, error)
	// ListChildren returns the immediate child entry ids under path.
	ListChildren(root, path string) ([]string, error)
	// ReadValue reads a named string value from path (or path\child when
	// child is non-empty). The bool reports whether the value was present.
	ReadValue(root, path, child, valueName string) (string, bool, error)
}

// MemStore is an in-memory Store, also used as the backing for the
// file-based store. Paths are case-insensitive and use backslash
// separators, matching registry conventions.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string // root\path -> valueName -> value
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]map[string]string)}
}

func normalize(parts ...string) string {
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, "/", `\`)
		p = strings.Trim(p, `\`)
		if p != "" {
			joined = append(joined, p)
		}
	}
	return strings.ToLower(strings.Join(joined, `\`))
}

// SetValue records a value at root\path, creating the path if needed.
func (m *MemStore) SetValue(root, path, valueName, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalize(root, path)
	if m.values[key] == nil {
		m.values[key] = make(map[string]string)
	}
	m.values[key][valueName] = value
}

// CreatePath records an empty path so existence checks succeed.
func (m *MemStore) CreatePath(root, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalize(root, path)
	if m.values[key] == nil {
		m.values[key] = make(map[string]string)
	}
}

func (m *MemStore) Exists(root, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := normalize(root, path)
	if _, ok := m.values[key]; ok {
		return true, nil
	}
	// A path also exists if any recorded path nests beneath it.
	prefix := key + `\`
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) ListChildren(root, path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := normalize(root, path) + `\`
	seen := make(map[string]struct{})
	for k := range m.values {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, `\`); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}
	children := make([]string, 0, len(seen))
	for c := range seen {
		children = append(children, c)
	}
	sort.Strings(children)
	return children, nil
}

func (m *MemStore) ReadValue(root, path, child, valueName string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := normalize(root, path, child)
	vals, ok := m.values[key]
	if !ok {
		return "", false, nil
	}
	v, ok := vals[valueName]
	return v, ok, nil
}

// fileDocument is the YAML shape of a file-backed state store:
//
//	roots:
//	  HKLM:
//	    'SOFTWARE\Vendor\App':
//	      DisplayName: App
//	      DisplayVersion: "1.2"
type fileDocument struct {
	Roots map[string]map[string]map[string]string `yaml:"roots"`
}

// LoadFile reads a YAML state-store snapshot into a MemStore. This backs
// the Store interface on hosts without a registry equivalent.
func LoadFile(path string) (*MemStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state store %s: %w", path, err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing state store %s: %w", path, err)
	}
	m := NewMemStore()
	for root, paths := range doc.Roots {
		for p, vals := range paths {
			m.CreatePath(root, p)
			for name, value := range vals {
				m.SetValue(root, p, name, value)
			}
		}
	}
	return m, nil
}
