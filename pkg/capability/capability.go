// pkg/capability/capability.go - optional feature providers with
// prioritized discovery.
//
// A capability is a named slot (for example "state.store" or
// "metadata.reader") that several providers may be able to fill. Each
// provider registers a probe; resolution tries probes in descending
// priority order and keeps the first that succeeds. A failing probe is
// logged and skipped, so one broken provider never prevents another from
// loading.

package capability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/progadmins/prospect/pkg/logging"
)

// Provider supplies one candidate implementation of a capability.
type Provider struct {
	Name     string
	Priority int // higher probes first
	Probe    func() (interface{}, error)
}

var (
	mu        sync.Mutex
	providers = make(map[string][]Provider)
)

// Register adds a provider for the named capability. Typically called
// from init funcs of implementation files, including platform-tagged ones.
func Register(capability string, p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[capability] = append(providers[capability], p)
}

// Resolve probes registered providers for the capability in priority
// order and returns the first instance that probes successfully, along
// with the provider name that produced it.
func Resolve(capability string) (interface{}, string, error) {
	mu.Lock()
	candidates := make([]Provider, len(providers[capability]))
	copy(candidates, providers[capability])
	mu.Unlock()

	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("no providers registered for capability %q", capability)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	var lastErr error
	for _, p := range candidates {
		instance, err := p.Probe()
		if err != nil {
			logging.Warn("capability provider failed to load",
				"capability", capability, "provider", p.Name, "error", err)
			lastErr = err
			continue
		}
		logging.Debug("capability resolved",
			"capability", capability, "provider", p.Name)
		return instance, p.Name, nil
	}
	return nil, "", fmt.Errorf("all providers failed for capability %q: %w", capability, lastErr)
}

// Reset drops all registrations. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	providers = make(map[string][]Provider)
}
