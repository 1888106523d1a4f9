// pkg/config/config.go - configuration settings for prospect.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ScanSettings controls the filesystem scanner.
type ScanSettings struct {
	// Directory names pruned entirely during a scan, compared
	// case-insensitively.
	IgnoredDirNames []string `yaml:"ignored_dir_names"`
	// Files below this size are skipped before metadata extraction.
	MinFileSizeBytes int64 `yaml:"min_file_size_bytes"`
	// Accepted package extensions, lowercase with leading dot.
	Extensions []string `yaml:"extensions"`
}

// HeuristicWeights are the tuning knobs of the fallback scorer. They are
// configuration, not constants: higher score means more installer-like,
// nothing beyond that is promised.
type HeuristicWeights struct {
	Base           float64 `yaml:"base"`
	MSIBonus       float64 `yaml:"msi_bonus"`
	VersionPresent float64 `yaml:"version_present"`
	InstallerName  float64 `yaml:"installer_name"`
	SizeLarge      float64 `yaml:"size_large"`
	SizeMedium     float64 `yaml:"size_medium"`
	CleanMetadata  float64 `yaml:"clean_metadata"`
	UninstallHint  float64 `yaml:"uninstall_hint"` // negative
}

// DetectionSettings tunes identification of non-cataloged candidates.
type DetectionSettings struct {
	ExcludeGenericNames       []string         `yaml:"exclude_generic_names"`
	ExcludePropertySubstrings []string         `yaml:"exclude_property_substrings"`
	ExcludeUninstallerHints   []string         `yaml:"exclude_uninstaller_hints"`
	HeuristicThreshold        float64          `yaml:"heuristic_threshold"`
	Weights                   HeuristicWeights `yaml:"weights"`
	// Size breakpoints (bytes) used by the scorer.
	SizeLargeBytes  int64 `yaml:"size_large_bytes"`
	SizeMediumBytes int64 `yaml:"size_medium_bytes"`
}

// Configuration holds the configurable options for prospect in YAML format.
type Configuration struct {
	CatalogPath             string            `yaml:"CatalogPath"`
	LedgerPath              string            `yaml:"LedgerPath"`
	StateStorePath          string            `yaml:"StateStorePath"` // file-backed state store for non-registry hosts
	LogLevel                string            `yaml:"LogLevel"`
	InstallerTimeoutMinutes int               `yaml:"InstallerTimeoutMinutes"`
	Scan                    ScanSettings      `yaml:"Scan"`
	Detection               DetectionSettings `yaml:"Detection"`
	// Command templates applied to heuristic candidates, which carry no
	// catalog template of their own. Keyed by extension; {path} is replaced
	// with the quoted package path.
	DefaultInstallCommands map[string]string `yaml:"DefaultInstallCommands"`
	// Passive-UI variants used in semi-silent mode.
	SemiSilentCommands map[string]string `yaml:"SemiSilentCommands"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		LogLevel:                "info",
		InstallerTimeoutMinutes: 30,
		Scan: ScanSettings{
			IgnoredDirNames: []string{
				"$recycle.bin", "system volume information", "windows",
				"temp", "tmp", "logs", "cache", "drivers", "fonts",
				"node_modules", ".git", ".svn", "__pycache__",
				"help", "documentation", "docs", "examples", "samples",
				"bin", "lib", "include", "licenses", "thirdparty",
				"redistributables", "updates", "patches", "hotfixes",
				"extensions", "plugins", "addins",
			},
			MinFileSizeBytes: 5 * 1024 * 1024,
			Extensions:       []string{".exe", ".msi"},
		},
		Detection: DetectionSettings{
			ExcludeGenericNames: []string{
				"driver", "redist", "runtime", "package", "library", "component",
			},
			ExcludePropertySubstrings: []string{
				".net framework", "visual c++", "vsto",
				"codemeter runtime", "sentinel runtime",
				"microsoft edge", "webview2",
				"sql server", "sql native client", "odbc driver",
				"java update", "jre", "jdk",
				"directx", "nvidia driver", "amd driver", "intel driver",
				"silverlight", "flash player",
				"vcredist", "report viewer", "crystal reports",
			},
			ExcludeUninstallerHints: []string{
				"uninstall", "remove", "uninst", "cleanup", "fix", "patch", "update",
			},
			HeuristicThreshold: 0.5,
			Weights: HeuristicWeights{
				Base:           0.3,
				MSIBonus:       0.3,
				VersionPresent: 0.1,
				InstallerName:  0.25,
				SizeLarge:      0.15,
				SizeMedium:     0.1,
				CleanMetadata:  0.15,
				UninstallHint:  -0.35,
			},
			SizeLargeBytes:  100 * 1024 * 1024,
			SizeMediumBytes: 10 * 1024 * 1024,
		},
		DefaultInstallCommands: map[string]string{
			".exe": `{path} /S /NORESTART`,
			".msi": `msiexec /i {path} /qn /norestart`,
		},
		SemiSilentCommands: map[string]string{
			".exe": `{path} /S /NORESTART`,
			".msi": `msiexec /i {path} /passive /norestart`,
		},
	}
}

// DefaultConfigPath returns the per-user location of the config file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "prospect", "config.yaml")
}

// DefaultLedgerPath returns the per-user location of the install ledger.
func DefaultLedgerPath() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "prospect", "ledger.json")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "prospect", "ledger.json")
}

// Load reads configuration from a YAML file. A missing file is not an
// error: the defaults are returned so the tool works out of the box.
func Load(path string) (*Configuration, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes the configuration back to a YAML file.
func Save(path string, cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills fields a partial config file left empty.
func applyDefaults(cfg *Configuration) {
	def := Default()
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.InstallerTimeoutMinutes <= 0 {
		cfg.InstallerTimeoutMinutes = def.InstallerTimeoutMinutes
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = DefaultLedgerPath()
	}
	if len(cfg.Scan.Extensions) == 0 {
		cfg.Scan.Extensions = def.Scan.Extensions
	}
	if cfg.Scan.MinFileSizeBytes <= 0 {
		cfg.Scan.MinFileSizeBytes = def.Scan.MinFileSizeBytes
	}
	if len(cfg.Scan.IgnoredDirNames) == 0 {
		cfg.Scan.IgnoredDirNames = def.Scan.IgnoredDirNames
	}
	if cfg.Detection.HeuristicThreshold == 0 {
		cfg.Detection.HeuristicThreshold = def.Detection.HeuristicThreshold
	}
	if cfg.Detection.Weights == (HeuristicWeights{}) {
		cfg.Detection.Weights = def.Detection.Weights
	}
	if cfg.Detection.SizeLargeBytes == 0 {
		cfg.Detection.SizeLargeBytes = def.Detection.SizeLargeBytes
	}
	if cfg.Detection.SizeMediumBytes == 0 {
		cfg.Detection.SizeMediumBytes = def.Detection.SizeMediumBytes
	}
	if len(cfg.DefaultInstallCommands) == 0 {
		cfg.DefaultInstallCommands = def.DefaultInstallCommands
	}
	if len(cfg.SemiSilentCommands) == 0 {
		cfg.SemiSilentCommands = def.SemiSilentCommands
	}
}
