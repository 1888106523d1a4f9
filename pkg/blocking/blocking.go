// pkg/blocking/blocking.go - detection of running applications that
// block an install.

package blocking

import (
	"strings"

	"github.com/progadmins/prospect/pkg/logging"
	"github.com/shirou/gopsutil/v3/process"
)

// IsAppRunning checks whether a specific application is currently
// running. Names may be given with or without the .exe suffix, or as a
// full executable path.
func IsAppRunning(appName string) bool {
	processes, err := process.Processes()
	if err != nil {
		logging.Error("failed to list processes", "error", err)
		return false
	}

	clean := strings.ToLower(appName)
	for _, proc := range processes {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		procName := strings.ToLower(name)

		switch {
		case strings.ContainsAny(clean, `/\`):
			// Full path given: compare against the executable path.
			exe, err := proc.Exe()
			if err != nil {
				continue
			}
			if strings.EqualFold(exe, appName) {
				return true
			}
		case strings.HasSuffix(clean, ".exe"):
			if procName == clean {
				return true
			}
		default:
			if procName == clean || procName == clean+".exe" {
				return true
			}
		}
	}
	return false
}

// AnyRunning returns the first of the given applications found running.
func AnyRunning(appNames []string) (string, bool) {
	for _, name := range appNames {
		if IsAppRunning(name) {
			logging.Info("blocking application running", "app", name)
			return name, true
		}
	}
	return "", false
}
