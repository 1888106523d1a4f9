// cmd/prospect/main.go

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/progadmins/prospect/pkg/capability"
	"github.com/progadmins/prospect/pkg/catalog"
	"github.com/progadmins/prospect/pkg/config"
	"github.com/progadmins/prospect/pkg/extract"
	"github.com/progadmins/prospect/pkg/identify"
	"github.com/progadmins/prospect/pkg/installer"
	"github.com/progadmins/prospect/pkg/ledger"
	"github.com/progadmins/prospect/pkg/logging"
	"github.com/progadmins/prospect/pkg/process"
	"github.com/progadmins/prospect/pkg/scanner"
	"github.com/progadmins/prospect/pkg/status"
	"github.com/progadmins/prospect/pkg/store"
	"github.com/progadmins/prospect/pkg/version"
)

func main() {
	configPath := pflag.String("config", config.DefaultConfigPath(), "Path to the configuration file.")
	catalogPath := pflag.String("catalog", "", "Path to the program catalog (overrides config).")
	scanRoot := pflag.String("scan", "", "Scan this directory tree for installer packages.")
	checkStatus := pflag.Bool("check-status", false, "Check installation status of all cataloged programs.")
	installKey := pflag.String("install", "", "Install the program with this catalog key.")
	packagePath := pflag.String("package", "", "Installer package to use with --install/--confirm.")
	confirmKey := pflag.String("confirm", "", "Record a manual install of this key after the installer finished.")
	uninstallKey := pflag.String("uninstall", "", "Uninstall the program with this catalog key.")
	modeFlag := pflag.String("mode", "auto", "Install mode: auto, semi, or manual.")
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	switch verbosity {
	case 0:
		// keep configured level
	case 1:
		cfg.LogLevel = "info"
	default:
		cfg.LogLevel = "debug"
	}
	logging.Init(logging.Config{Level: cfg.LogLevel})

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}
	if *showConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
		os.Exit(0)
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := assemble(cfg)
	if err != nil {
		logging.Error("startup failed", "error", err)
		os.Exit(1)
	}

	mode, err := installer.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch {
	case *installKey != "":
		os.Exit(app.install(ctx, *installKey, *packagePath, *scanRoot, mode))
	case *confirmKey != "":
		os.Exit(app.confirm(ctx, *confirmKey, *packagePath))
	case *uninstallKey != "":
		os.Exit(app.uninstall(ctx, *uninstallKey))
	case *checkStatus:
		os.Exit(app.checkStatus(os.Stdout))
	case *scanRoot != "":
		os.Exit(app.scan(ctx, *scanRoot))
	default:
		pflag.Usage()
		os.Exit(2)
	}
}

type app struct {
	cfg     *config.Configuration
	catalog *catalog.Catalog
	store   store.Store
	reader  extract.Reader
	ledger  *ledger.Ledger
	orch    *installer.Orchestrator
}

// assemble wires the components together, resolving the host-dependent
// ones (state store, metadata reader) through capability discovery.
func assemble(cfg *config.Configuration) (*app, error) {
	if cfg.StateStorePath != "" {
		// A configured file-backed store outranks the native providers.
		path := cfg.StateStorePath
		capability.Register("state.store", capability.Provider{
			Name:     "state-file",
			Priority: 50,
			Probe:    func() (interface{}, error) { return store.LoadFile(path) },
		})
	}

	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		var err error
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
	} else {
		cat, _ = catalog.New(nil)
		logging.Warn("no catalog configured; only heuristic identification is available")
	}

	var st store.Store
	if instance, providerName, err := capability.Resolve("state.store"); err == nil {
		st = instance.(store.Store)
		logging.Debug("state store selected", "provider", providerName)
	} else {
		st = store.NewMemStore()
		logging.Warn("no state store available; status checks will report nothing installed", "error", err)
	}

	reader, err := extract.NewReader()
	if err != nil {
		return nil, err
	}

	led := ledger.Open(cfg.LedgerPath)
	orch := installer.New(cat, st, led, process.ExecRunner{}, cfg, installer.NewProductChecker())

	return &app{cfg: cfg, catalog: cat, store: st, reader: reader, ledger: led, orch: orch}, nil
}

func (a *app) scan(ctx context.Context, root string) int {
	results, err := scanner.Scan(ctx, root, a.cfg.Scan, a.reader)
	if err != nil {
		logging.Error("scan failed", "error", err)
		return 1
	}
	for c := range results {
		r := identify.Identify(c, a.catalog, a.cfg.Detection)
		switch r.Kind {
		case identify.Matched:
			fmt.Printf("MATCHED    %-20s %s\n", r.Key, c.Path)
		case identify.Heuristic:
			fmt.Printf("CANDIDATE  score=%.2f          %s\n", r.Score, c.Path)
		case identify.Rejected:
			logging.Debug("candidate rejected", "path", c.Path, "reason", r.Reason)
		}
	}
	return 0
}

func (a *app) checkStatus(out io.Writer) int {
	results := status.CheckAll(a.store, a.catalog)
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := results[k]
		if !s.Installed {
			fmt.Fprintf(out, "%-24s not installed\n", k)
			continue
		}
		v := s.Version
		if v == "" {
			v = "unknown version"
		}
		// Version drift against the last recorded install: the state store
		// can change under this tool, so surface it either way.
		note := ""
		if entry, ok := a.ledger.Get(k); ok && entry.LastKnownVersion != "" {
			switch {
			case status.IsOlder(entry.LastKnownVersion, s.Version):
				note = fmt.Sprintf(", newer than recorded %s", entry.LastKnownVersion)
			case status.IsOlder(s.Version, entry.LastKnownVersion):
				note = fmt.Sprintf(", older than recorded %s", entry.LastKnownVersion)
			}
		}
		fmt.Fprintf(out, "%-24s installed (%s%s)\n", k, v, note)
	}
	return 0
}

// findPackage locates the installer for a catalog key, either from an
// explicit --package path or by scanning a root for a matching candidate.
func (a *app) findPackage(ctx context.Context, key, pkg, root string) (installer.Target, error) {
	if pkg != "" {
		t := installer.Target{Key: key, Path: pkg}
		if meta, err := a.reader.Extract(pkg, extract.NormalizeExt(filepath.Ext(pkg))); err == nil {
			t.Metadata = meta
		}
		return t, nil
	}
	if root == "" {
		return installer.Target{}, fmt.Errorf("either --package or --scan is required with --install")
	}
	results, err := scanner.Scan(ctx, root, a.cfg.Scan, a.reader)
	if err != nil {
		return installer.Target{}, err
	}
	for c := range results {
		r := identify.Identify(c, a.catalog, a.cfg.Detection)
		if r.Kind == identify.Matched && r.Key == key {
			return installer.Target{Key: key, Path: c.Path, Metadata: c.Metadata}, nil
		}
	}
	return installer.Target{}, fmt.Errorf("no installer for %q found under %s", key, root)
}

func (a *app) install(ctx context.Context, key, pkg, root string, mode installer.Mode) int {
	target, err := a.findPackage(ctx, key, pkg, root)
	if err != nil {
		logging.Error("install aborted", "key", key, "error", err)
		return 1
	}
	return report(a.orch.Install(ctx, target, mode))
}

func (a *app) confirm(ctx context.Context, key, pkg string) int {
	target := installer.Target{Key: key, Path: pkg}
	return report(a.orch.ConfirmInstall(ctx, target))
}

func (a *app) uninstall(ctx context.Context, key string) int {
	return report(a.orch.Uninstall(ctx, key))
}

func report(out installer.Outcome) int {
	log := logging.WithComponent("cli")
	switch out.Status {
	case installer.Success, installer.Launched:
		log.Info().Str("status", out.Status.String()).Msg(out.Reason)
		fmt.Println(out.Reason)
		return 0
	case installer.Ambiguous:
		log.Warn().Msg(out.Reason)
		fmt.Println(out.Reason)
		return 3
	default:
		log.Error().Int("exit_code", out.ExitCode).Msg(out.Reason)
		fmt.Fprintln(os.Stderr, out.Reason)
		return 1
	}
}
