// pkg/installer/installer.go - install and uninstall orchestration.

package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/progadmins/prospect/pkg/blocking"
	"github.com/progadmins/prospect/pkg/catalog"
	"github.com/progadmins/prospect/pkg/config"
	"github.com/progadmins/prospect/pkg/extract"
	"github.com/progadmins/prospect/pkg/ledger"
	"github.com/progadmins/prospect/pkg/logging"
	"github.com/progadmins/prospect/pkg/process"
	"github.com/progadmins/prospect/pkg/status"
	"github.com/progadmins/prospect/pkg/store"
)

// Mode selects the command-line strategy for an install.
type Mode int

const (
	// Auto runs the fully silent command and waits for completion.
	Auto Mode = iota
	// SemiSilent prefers a passive-UI command where one exists.
	SemiSilent
	// Manual launches the package with no switches and does not wait;
	// the ledger write waits for an explicit confirmation.
	Manual
)

// ParseMode maps a CLI string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return Auto, nil
	case "semi", "semisilent", "semi-silent":
		return SemiSilent, nil
	case "manual":
		return Manual, nil
	}
	return Auto, fmt.Errorf("unknown install mode %q", s)
}

// OutcomeStatus is the terminal state of one orchestrator invocation.
type OutcomeStatus int

const (
	Success OutcomeStatus = iota
	// Ambiguous means the exit code reported success but the independent
	// verification disagreed; operator judgment is required.
	Ambiguous
	Failed
	// Launched is the terminal state of a Manual-mode install: the
	// package is running interactively and nothing has been recorded.
	Launched
)

func (s OutcomeStatus) String() string {
	switch s {
	case Success:
		return "success"
	case Ambiguous:
		return "ambiguous"
	case Failed:
		return "failed"
	case Launched:
		return "launched"
	default:
		return "unknown"
	}
}

// Outcome reports how an install or uninstall ended.
type Outcome struct {
	Status   OutcomeStatus
	Reason   string
	ExitCode int
}

// Target identifies what to install: a cataloged program (Key set) or a
// heuristic candidate (Key empty), plus the resolved package path and any
// extracted metadata.
type Target struct {
	Key      string
	Path     string
	Metadata *extract.Metadata
}

// ProductChecker independently verifies whether a product identifier is
// present in the installer subsystem's own record store. May be
// unavailable on some hosts.
type ProductChecker interface {
	Installed(productCode string) (bool, error)
}

// Orchestrator executes installs and uninstalls. Operations on the same
// program key are serialized; the per-key lock spans child-process
// execution through the ledger write.
type Orchestrator struct {
	Catalog  *catalog.Catalog
	Store    store.Store
	Ledger   *ledger.Ledger
	Runner   process.Runner
	Config   *config.Configuration
	Products ProductChecker // nil when no independent check is available

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New assembles an orchestrator from its collaborators.
func New(cat *catalog.Catalog, st store.Store, led *ledger.Ledger, runner process.Runner, cfg *config.Configuration, products ProductChecker) *Orchestrator {
	return &Orchestrator{
		Catalog:  cat,
		Store:    st,
		Ledger:   led,
		Runner:   runner,
		Config:   cfg,
		Products: products,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(key string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.locks[key]
	if !ok {
		m = &sync.Mutex{}
		o.locks[key] = m
	}
	return m
}

func (o *Orchestrator) timeout() time.Duration {
	minutes := 30
	if o.Config != nil && o.Config.InstallerTimeoutMinutes > 0 {
		minutes = o.Config.InstallerTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func quote(path string) string {
	return `"` + path + `"`
}

// baseName returns the last path element. Package paths may carry either
// separator style regardless of the host, so this never goes through
// filepath.Base.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ledgerKey returns the key an install is recorded under. Heuristic
// candidates have no catalog key, so they are recorded under a derived
// ad-hoc key to keep them reversible too.
func ledgerKey(t Target) string {
	if t.Key != "" {
		return t.Key
	}
	return "adhoc:" + strings.ToLower(baseName(t.Path))
}

func displayName(t Target, def *catalog.ProgramDefinition) string {
	if def != nil && def.DisplayName != "" {
		return def.DisplayName
	}
	if t.Metadata != nil && t.Metadata.ProductName != "" {
		return t.Metadata.ProductName
	}
	return baseName(t.Path)
}

// Install executes the resolved install command for the target in the
// given mode and reports a terminal outcome. No automatic retries: a
// failed install is reported and requires explicit re-invocation.
func (o *Orchestrator) Install(ctx context.Context, t Target, mode Mode) Outcome {
	key := ledgerKey(t)
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	var def *catalog.ProgramDefinition
	if t.Key != "" {
		d, ok := o.Catalog.Get(t.Key)
		if !ok {
			return Outcome{Status: Failed, Reason: fmt.Sprintf("unknown program key %q", t.Key)}
		}
		def = &d
		if app, running := blocking.AnyRunning(d.BlockingApps); running {
			return Outcome{Status: Failed,
				Reason: fmt.Sprintf("blocking application %s is running", app)}
		}
	}

	name := displayName(t, def)

	if mode == Manual {
		if err := o.Runner.Start(quote(t.Path)); err != nil {
			return Outcome{Status: Failed, ExitCode: -1,
				Reason: fmt.Sprintf("launching %s interactively: %v", name, err)}
		}
		logging.Info("package launched interactively, confirm to record",
			"target", name, "path", t.Path)
		return Outcome{Status: Launched,
			Reason: "launched interactively; run confirm after the installer finishes"}
	}

	cmdline, err := o.resolveInstallCommand(t, def, mode)
	if err != nil {
		return Outcome{Status: Failed, Reason: err.Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	exitCode, err := o.Runner.Run(runCtx, cmdline)
	if err == process.ErrTimeout {
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("install of %s timed out after %s; process left running", name, o.timeout())}
	}
	if err != nil {
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("install of %s could not be launched: %v", name, err)}
	}
	if !process.SuccessExit(exitCode) {
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("install of %s exited with code %d", name, exitCode)}
	}

	outcome := Outcome{Status: Success, ExitCode: exitCode,
		Reason: fmt.Sprintf("install of %s succeeded (exit %d)", name, exitCode)}

	// Independent verification: a success exit code with a failed product
	// lookup is surfaced as ambiguous, never silently upgraded.
	if t.Metadata != nil && t.Metadata.ProductCode != "" && o.Products != nil {
		present, err := o.Products.Installed(t.Metadata.ProductCode)
		if err != nil {
			logging.Warn("post-install product verification unavailable",
				"target", name, "product_code", t.Metadata.ProductCode, "error", err)
		} else if !present {
			outcome = Outcome{Status: Ambiguous, ExitCode: exitCode,
				Reason: fmt.Sprintf("install of %s exited %d but product %s was not found in the product store",
					name, exitCode, t.Metadata.ProductCode)}
			logging.Error("install verification mismatch",
				"target", name, "product_code", t.Metadata.ProductCode)
		}
	}

	if err := o.recordInstall(t, def, name); err != nil {
		// The software may well be installed, but without the ledger
		// entry this tool cannot reverse it later. Surface loudly.
		logging.Error("install succeeded but ledger write failed",
			"target", name, "error", err)
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("install of %s succeeded but recording it failed: %v; future uninstall is broken", name, err)}
	}
	return outcome
}

// resolveInstallCommand picks the command line for the target and mode.
func (o *Orchestrator) resolveInstallCommand(t Target, def *catalog.ProgramDefinition, mode Mode) (string, error) {
	ext := extract.NormalizeExt(filepath.Ext(t.Path))

	if def != nil {
		tmpl, ok := def.InstallCommands[ext]
		if !ok {
			return "", fmt.Errorf("no install command configured for %q packages of %s", ext, def.Key)
		}
		if mode == SemiSilent && ext == ".msi" {
			// Standard passive UI for installer databases.
			if passive, ok := o.Config.SemiSilentCommands[ext]; ok {
				return strings.ReplaceAll(passive, "{path}", quote(t.Path)), nil
			}
		}
		if mode == SemiSilent {
			logging.Warn("no passive variant known for this package, using configured silent command",
				"key", def.Key, "ext", ext)
		}
		return strings.ReplaceAll(tmpl, "{path}", quote(t.Path)), nil
	}

	// Heuristic candidate: no explicit template exists, apply the
	// mode-specific default switch set for the extension.
	templates := o.Config.DefaultInstallCommands
	if mode == SemiSilent {
		templates = o.Config.SemiSilentCommands
	}
	tmpl, ok := templates[ext]
	if !ok {
		return "", fmt.Errorf("no default install command for %q packages", ext)
	}
	return strings.ReplaceAll(tmpl, "{path}", quote(t.Path)), nil
}

// recordInstall writes the ledger entry, harvesting whatever uninstall
// information the state store now carries.
func (o *Orchestrator) recordInstall(t Target, def *catalog.ProgramDefinition, name string) error {
	entry := ledger.Entry{
		ProgramKey:    ledgerKey(t),
		DisplayName:   name,
		InstalledAt:   time.Now().UTC(),
		InstallerPath: t.Path,
	}
	if t.Metadata != nil {
		entry.ProductCode = t.Metadata.ProductCode
		entry.LastKnownVersion = t.Metadata.Version
	}
	if def != nil && o.Store != nil {
		st := status.Evaluate(o.Store, def.StateChecks)
		if st.Installed && st.Version != "" {
			entry.LastKnownVersion = st.Version
		}
		entry.UninstallCommand = status.UninstallCommand(o.Store, def.StateChecks)
	}
	return o.Ledger.Put(entry)
}

// ConfirmInstall completes a Manual-mode install: it re-checks the state
// store and, if the program is now present, writes the ledger entry.
func (o *Orchestrator) ConfirmInstall(ctx context.Context, t Target) Outcome {
	key := ledgerKey(t)
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	var def *catalog.ProgramDefinition
	if t.Key != "" {
		d, ok := o.Catalog.Get(t.Key)
		if !ok {
			return Outcome{Status: Failed, Reason: fmt.Sprintf("unknown program key %q", t.Key)}
		}
		def = &d
		st := status.Evaluate(o.Store, d.StateChecks)
		if !st.Installed {
			return Outcome{Status: Failed,
				Reason: fmt.Sprintf("%s is not detected as installed; nothing recorded", displayName(t, def))}
		}
	}
	name := displayName(t, def)
	if err := o.recordInstall(t, def, name); err != nil {
		return Outcome{Status: Failed,
			Reason: fmt.Sprintf("recording install of %s failed: %v", name, err)}
	}
	return Outcome{Status: Success, Reason: fmt.Sprintf("install of %s recorded", name)}
}

var msiProductCodeRe = regexp.MustCompile(`(?i)\{[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}\}`)

// Uninstall reverses an install previously recorded in the ledger. With
// no ledger entry there is nothing to reverse and no process is launched.
func (o *Orchestrator) Uninstall(ctx context.Context, key string) Outcome {
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	entry, ok := o.Ledger.Get(key)
	if !ok {
		return Outcome{Status: Failed, Reason: "no uninstall record"}
	}
	name := entry.DisplayName
	if name == "" {
		name = key
	}

	cmdline := entry.UninstallCommand
	if cmdline == "" && entry.ProductCode != "" {
		cmdline = fmt.Sprintf("msiexec /x %s", entry.ProductCode)
	}
	if cmdline == "" {
		return Outcome{Status: Failed,
			Reason: fmt.Sprintf("no uninstall command recorded for %s", name)}
	}

	// msiexec uninstalls referencing a product code are normalized to the
	// canonical form before silent flags are applied.
	lower := strings.ToLower(cmdline)
	if strings.Contains(lower, "msiexec") && (strings.Contains(lower, "/x") || strings.Contains(lower, "/uninstall")) {
		if code := msiProductCodeRe.FindString(cmdline); code != "" {
			cmdline = fmt.Sprintf("msiexec /x %s", code)
		}
	}
	cmdline = AppendSilentFlags(cmdline)

	runCtx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	exitCode, err := o.Runner.Run(runCtx, cmdline)
	if err == process.ErrTimeout {
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("uninstall of %s timed out after %s; process left running", name, o.timeout())}
	}
	if err != nil {
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("uninstall of %s could not be launched: %v", name, err)}
	}
	if !process.SuccessExit(exitCode) {
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("uninstall of %s exited with code %d", name, exitCode)}
	}

	if entry.ProductCode != "" && o.Products != nil {
		present, err := o.Products.Installed(entry.ProductCode)
		if err == nil && present {
			// Verification says the product survived; keep the entry so
			// the operator can try again.
			return Outcome{Status: Ambiguous, ExitCode: exitCode,
				Reason: fmt.Sprintf("uninstall of %s exited %d but product %s is still present",
					name, exitCode, entry.ProductCode)}
		}
	}

	if err := o.Ledger.Remove(key); err != nil {
		logging.Error("uninstall succeeded but ledger update failed",
			"key", key, "error", err)
		return Outcome{Status: Failed, ExitCode: exitCode,
			Reason: fmt.Sprintf("uninstall of %s succeeded but removing its record failed: %v", name, err)}
	}
	return Outcome{Status: Success, ExitCode: exitCode,
		Reason: fmt.Sprintf("uninstall of %s succeeded (exit %d)", name, exitCode)}
}

// AppendSilentFlags adds the conventional quiet switches to an uninstall
// command when none are present. msiexec invocations get /qn /norestart;
// anything else is assumed to be an EXE uninstaller and gets /S.
func AppendSilentFlags(cmdline string) string {
	trimmed := strings.TrimSpace(cmdline)
	lower := strings.ToLower(trimmed)

	if strings.Contains(lower, "msiexec") && (strings.Contains(lower, "/x") || strings.Contains(lower, "/uninstall")) {
		if !strings.Contains(lower, "/qn") && !strings.Contains(lower, "/quiet") {
			trimmed += " /qn"
		}
		if !strings.Contains(lower, "/norestart") {
			trimmed += " /norestart"
		}
		return trimmed
	}

	for _, flag := range []string{" /s", "/silent", "/verysilent", " /q", "/quiet", " -s", "-silent", " -q"} {
		if strings.Contains(lower, flag) {
			return trimmed
		}
	}
	return trimmed + " /S"
}
