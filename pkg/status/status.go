// pkg/status/status.go - installation state checks against the system
// state store.

package status

import (
	"regexp"
	"sort"

	goversion "github.com/hashicorp/go-version"
	"github.com/progadmins/prospect/pkg/catalog"
	"github.com/progadmins/prospect/pkg/logging"
	"github.com/progadmins/prospect/pkg/store"
)

// InstallStatus is the current state of one program. It is derived fresh
// on every check; the state store can change outside this tool, so
// results are never cached.
type InstallStatus struct {
	Installed bool
	Version   string // empty when unknown
}

// The value name conventionally holding the uninstall command next to a
// matched entry.
const uninstallValueName = "UninstallString"

// Evaluate runs a program's state check rules in order and returns the
// first definitive result; if no rule matches, the program is reported
// not installed. Store access errors make the rule non-matching and the
// evaluation continues, never fails.
func Evaluate(st store.Store, rules []catalog.StateCheckRule) InstallStatus {
	for _, rule := range rules {
		if rule.ExistenceOnly {
			ok, err := st.Exists(rule.StoreRoot, rule.Path)
			if err != nil {
				logging.Debug("state check: existence lookup failed, rule skipped",
					"root", rule.StoreRoot, "path", rule.Path, "error", err)
				continue
			}
			if ok {
				// Presence alone signals installed; the version stays
				// unknown regardless of any values under the path.
				return InstallStatus{Installed: true}
			}
			continue
		}

		child, ok := matchChild(st, rule)
		if !ok {
			continue
		}
		version := ""
		if rule.GetValueName != "" {
			if v, present, err := st.ReadValue(rule.StoreRoot, rule.Path, child, rule.GetValueName); err == nil && present {
				version = v
			}
		}
		return InstallStatus{Installed: true, Version: version}
	}
	return InstallStatus{}
}

// matchChild enumerates child entries under the rule path and returns the
// first whose match value satisfies the rule pattern. Children are sorted
// lexicographically before evaluation; the underlying store order is not
// stable, and the sort makes multi-match results deterministic.
func matchChild(st store.Store, rule catalog.StateCheckRule) (string, bool) {
	re, err := regexp.Compile("(?i)" + rule.MatchPattern)
	if err != nil {
		logging.Warn("state check: invalid match pattern, rule skipped",
			"pattern", rule.MatchPattern, "error", err)
		return "", false
	}
	children, err := st.ListChildren(rule.StoreRoot, rule.Path)
	if err != nil {
		logging.Debug("state check: child enumeration failed, rule skipped",
			"root", rule.StoreRoot, "path", rule.Path, "error", err)
		return "", false
	}
	sort.Strings(children)

	for _, child := range children {
		v, present, err := st.ReadValue(rule.StoreRoot, rule.Path, child, rule.MatchValueName)
		if err != nil || !present {
			continue
		}
		if re.MatchString(v) {
			return child, true
		}
	}
	return "", false
}

// UninstallCommand searches the program's pattern rules for a matched
// entry carrying an uninstall command string. Existence-only rules record
// no command and are skipped.
func UninstallCommand(st store.Store, rules []catalog.StateCheckRule) string {
	for _, rule := range rules {
		if rule.ExistenceOnly {
			continue
		}
		child, ok := matchChild(st, rule)
		if !ok {
			continue
		}
		if cmd, present, err := st.ReadValue(rule.StoreRoot, rule.Path, child, uninstallValueName); err == nil && present {
			return cmd
		}
	}
	return ""
}

// CheckAll evaluates every cataloged program and returns the mapping of
// program key to status. With no intervening store mutation, repeated
// calls yield identical results.
func CheckAll(st store.Store, cat *catalog.Catalog) map[string]InstallStatus {
	results := make(map[string]InstallStatus, cat.Len())
	for _, def := range cat.Programs() {
		s := Evaluate(st, def.StateChecks)
		results[def.Key] = s
		logging.Debug("status checked", "key", def.Key,
			"installed", s.Installed, "version", s.Version)
	}
	return results
}

// IsOlder reports whether local is a strictly older version than remote.
// Unparseable versions compare as not-older, the conservative answer.
func IsOlder(local, remote string) bool {
	vLocal, errLocal := goversion.NewVersion(local)
	vRemote, errRemote := goversion.NewVersion(remote)
	if errLocal != nil || errRemote != nil {
		logging.Debug("version parse error, skipping comparison",
			"local", local, "remote", remote)
		return false
	}
	return vLocal.LessThan(vRemote)
}
