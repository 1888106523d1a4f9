package identify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/progadmins/prospect/pkg/catalog"
	"github.com/progadmins/prospect/pkg/config"
	"github.com/progadmins/prospect/pkg/extract"
	"github.com/progadmins/prospect/pkg/scanner"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.ProgramDefinition{
		{
			Key: "petra",
			Identity: catalog.IdentityRules{
				ProductNames: []string{"Petra"},
				FilePatterns: []string{"Setup*.exe"},
			},
		},
		{
			Key: "flowsim",
			Identity: catalog.IdentityRules{
				ProductNames: []string{"FlowSim"},
				FilePatterns: []string{"Setup*.exe"},
			},
		},
	})
	require.NoError(t, err)
	return cat
}

func candidate(name string, size int64, meta *extract.Metadata) scanner.CandidateFile {
	return scanner.CandidateFile{
		Path:      filepath.Join(`C:\drop`, name),
		Size:      size,
		Extension: extract.NormalizeExt(filepath.Ext(name)),
		Metadata:  meta,
	}
}

func TestCatalogMatchByProductName(t *testing.T) {
	c := candidate("whatever.exe", 20<<20, &extract.Metadata{ProductName: "Petra Platform 2.0"})
	res := Identify(c, testCatalog(t), config.Default().Detection)
	require.Equal(t, Matched, res.Kind)
	require.Equal(t, "petra", res.Key)
}

func TestCatalogMatchBeatsExclusion(t *testing.T) {
	// "Petra Redistributable Pack" trips the generic "redist" filter, but
	// the catalog identity match is evaluated first and wins.
	c := candidate("pack.exe", 20<<20, &extract.Metadata{ProductName: "Petra Redistributable Pack"})
	res := Identify(c, testCatalog(t), config.Default().Detection)
	require.Equal(t, Matched, res.Kind)
	require.Equal(t, "petra", res.Key)
}

func TestDeclarationOrderTieBreak(t *testing.T) {
	// Setup.exe satisfies both programs' file patterns; the definition
	// declared first wins, every time.
	c := candidate("Setup.exe", 20<<20, nil)
	det := config.Default().Detection
	for i := 0; i < 10; i++ {
		res := Identify(c, testCatalog(t), det)
		require.Equal(t, Matched, res.Kind)
		require.Equal(t, "petra", res.Key)
	}
}

func TestMatchOnOriginalFilename(t *testing.T) {
	// Renamed on disk, but the embedded original filename still matches.
	c := candidate("download(3).exe", 20<<20, &extract.Metadata{OriginalFilename: "Setup_Petra.exe"})
	res := Identify(c, testCatalog(t), config.Default().Detection)
	require.Equal(t, Matched, res.Kind)
}

func TestExclusionFilters(t *testing.T) {
	det := config.Default().Detection
	tests := []struct {
		name string
		c    scanner.CandidateFile
	}{
		{"property substring", candidate("x.exe", 20<<20, &extract.Metadata{ProductName: "Microsoft Visual C++ 2019 Redistributable"})},
		{"generic filename", candidate("redist_pack.exe", 20<<20, nil)},
		{"uninstaller hint in filename", candidate("uninstall_helper.exe", 20<<20, nil)},
		{"uninstaller hint in metadata", candidate("x.exe", 20<<20, &extract.Metadata{Description: "Removal tool for Acme"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Identify(tt.c, testCatalog(t), det)
			require.Equal(t, Rejected, res.Kind)
			require.NotEmpty(t, res.Reason)
		})
	}
}

func TestHeuristicThreshold(t *testing.T) {
	det := config.Default().Detection

	// Plain MSI: base 0.3 + msi 0.3 = 0.6, over the 0.5 threshold.
	msi := candidate("acme.msi", 1<<20, nil)
	res := Identify(msi, testCatalog(t), det)
	require.Equal(t, Heuristic, res.Kind)
	require.InDelta(t, 0.6, res.Score, 0.001)

	// Plain small EXE with no installer signals: base 0.3 only.
	exe := candidate("acme.exe", 1<<20, nil)
	res = Identify(exe, testCatalog(t), det)
	require.Equal(t, Rejected, res.Kind)
	require.InDelta(t, 0.3, res.Score, 0.001)

	// EXE named like an installer crosses the line: 0.3 + 0.25.
	named := candidate("acme_installer.exe", 1<<20, nil)
	res = Identify(named, testCatalog(t), det)
	require.Equal(t, Heuristic, res.Kind)
}

func TestScoreClampedToUnitInterval(t *testing.T) {
	det := config.Default().Detection

	big := candidate("setup_everything.msi", 200<<20, &extract.Metadata{ProductName: "Everything", Version: "9"})
	require.LessOrEqual(t, Score(big, det), 1.0)

	hinted := candidate("x.exe", 1, nil)
	det.Weights.Base = 0.1
	det.Weights.UninstallHint = -0.9
	hinted.Path = `C:\drop\uninstall.exe`
	require.GreaterOrEqual(t, Score(hinted, det), 0.0)
}

func TestUninstallHintSuppressesCleanMetadataBonus(t *testing.T) {
	det := config.Default().Detection
	c := candidate("acme_setup.exe", 1<<20, &extract.Metadata{ProductName: "Acme Cleanup Utility"})
	// base 0.3 + installer name 0.25 + uninstall hint -0.35 = 0.20,
	// and no clean-metadata bonus despite a product name being present.
	require.InDelta(t, 0.20, Score(c, det), 0.001)
}

func TestNilCatalogFallsThroughToHeuristics(t *testing.T) {
	c := candidate("Setup.msi", 20<<20, nil)
	res := Identify(c, nil, config.Default().Detection)
	require.Equal(t, Heuristic, res.Kind)
}

// End-to-end over a real scan: the cataloged setup is matched, the
// redistributable is filtered out by name.
func TestScanAndIdentify(t *testing.T) {
	root := t.TempDir()
	write := func(name string, size int) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(root, name), make([]byte, size), 0o644))
	}
	write("Setup_v2.exe", 4096)
	write("redist.exe", 2048)
	write("notes.txt", 4096)

	set := config.Default().Scan
	set.MinFileSizeBytes = 1024

	ch, err := scanner.Scan(context.Background(), root, set, nil)
	require.NoError(t, err)

	results := map[string]MatchResult{}
	for c := range ch {
		results[filepath.Base(c.Path)] = Identify(c, testCatalog(t), config.Default().Detection)
	}

	require.Len(t, results, 2)
	require.Equal(t, Matched, results["Setup_v2.exe"].Kind)
	require.Equal(t, "petra", results["Setup_v2.exe"].Key)
	require.Equal(t, Rejected, results["redist.exe"].Kind)
}
