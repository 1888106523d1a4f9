// pkg/catalog/catalog.go - program definitions and catalog loading.

package catalog

import (
	"fmt"
	"os"
	"regexp"

	"github.com/progadmins/prospect/pkg/logging"
	"gopkg.in/yaml.v3"
)

// IdentityRules describe how a candidate file is recognized as belonging
// to a program. All comparisons are case-insensitive; names and
// descriptions are substring matches, patterns are filename globs.
type IdentityRules struct {
	ProductNames []string `yaml:"product_names"`
	Descriptions []string `yaml:"descriptions"`
	FilePatterns []string `yaml:"file_patterns"`
}

func (r IdentityRules) empty() bool {
	return len(r.ProductNames) == 0 && len(r.Descriptions) == 0 && len(r.FilePatterns) == 0
}

// StateCheckRule is one lookup against the system state store. Rules are
// plain data so the checking engine stays auditable independent of any
// specific catalog.
type StateCheckRule struct {
	StoreRoot      string `yaml:"store_root"` // logical hive, e.g. "HKLM"
	Path           string `yaml:"path"`
	MatchValueName string `yaml:"match_value"`
	MatchPattern   string `yaml:"match_pattern"` // regexp, matched case-insensitively
	GetValueName   string `yaml:"get_value"`     // value reported as version
	ExistenceOnly  bool   `yaml:"existence_only"`
}

// ProgramDefinition is one known program: how to recognize its installer,
// how to tell whether it is installed, and how to install it silently.
type ProgramDefinition struct {
	Key             string            `yaml:"key"`
	DisplayName     string            `yaml:"display_name"`
	Identity        IdentityRules     `yaml:"identity"`
	StateChecks     []StateCheckRule  `yaml:"state_checks"`
	InstallCommands map[string]string `yaml:"install_commands"` // extension -> template with {path}
	BlockingApps    []string          `yaml:"blocking_apps"`
}

// Catalog is the full set of program definitions, immutable after load.
// Declaration order is significant: identification ties break toward the
// definition declared first.
type Catalog struct {
	programs []ProgramDefinition
	index    map[string]int
}

// New builds a validated catalog from a slice of definitions.
func New(programs []ProgramDefinition) (*Catalog, error) {
	index := make(map[string]int, len(programs))
	for i, p := range programs {
		if p.Key == "" {
			return nil, fmt.Errorf("program at position %d has no key", i)
		}
		if _, dup := index[p.Key]; dup {
			return nil, fmt.Errorf("duplicate program key %q", p.Key)
		}
		if p.Identity.empty() {
			return nil, fmt.Errorf("program %q has no identity rules and can never match", p.Key)
		}
		for j, rule := range p.StateChecks {
			if err := validateRule(rule); err != nil {
				return nil, fmt.Errorf("program %q state check %d: %w", p.Key, j, err)
			}
		}
		index[p.Key] = i
	}
	return &Catalog{programs: programs, index: index}, nil
}

func validateRule(rule StateCheckRule) error {
	if rule.Path == "" {
		return fmt.Errorf("rule has no path")
	}
	if rule.ExistenceOnly {
		return nil
	}
	if rule.MatchValueName == "" || rule.MatchPattern == "" {
		return fmt.Errorf("non-existence rule requires match_value and match_pattern")
	}
	if _, err := regexp.Compile("(?i)" + rule.MatchPattern); err != nil {
		return fmt.Errorf("invalid match_pattern %q: %w", rule.MatchPattern, err)
	}
	return nil
}

// Load reads and validates a catalog from a YAML file with a top-level
// "programs" list.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	logging.Info("catalog loaded", "path", path, "programs", len(cat.programs))
	return cat, nil
}

// Parse builds a catalog from raw YAML.
func Parse(data []byte) (*Catalog, error) {
	var wrapper struct {
		Programs []ProgramDefinition `yaml:"programs"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("unable to parse YAML: %w", err)
	}
	return New(wrapper.Programs)
}

// Programs returns definitions in declaration order. Callers must not
// mutate the returned slice.
func (c *Catalog) Programs() []ProgramDefinition {
	return c.programs
}

// Get looks up a definition by key.
func (c *Catalog) Get(key string) (ProgramDefinition, bool) {
	i, ok := c.index[key]
	if !ok {
		return ProgramDefinition{}, false
	}
	return c.programs[i], true
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	return len(c.programs)
}
