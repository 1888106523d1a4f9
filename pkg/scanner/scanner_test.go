package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/progadmins/prospect/pkg/config"
	"github.com/progadmins/prospect/pkg/extract"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func collect(t *testing.T, ch <-chan CandidateFile) []CandidateFile {
	t.Helper()
	var out []CandidateFile
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func testSettings() config.ScanSettings {
	return config.ScanSettings{
		IgnoredDirNames:  []string{"redistributables", "temp"},
		MinFileSizeBytes: 1024,
		Extensions:       []string{".exe", ".msi"},
	}
}

func TestScanFiltersAndOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "apps", "Setup_A.exe"), 2048)
	writeFile(t, filepath.Join(root, "apps", "readme.txt"), 2048)
	writeFile(t, filepath.Join(root, "apps", "tiny.exe"), 100)
	writeFile(t, filepath.Join(root, "zeta", "Install_B.msi"), 4096)

	ch, err := Scan(context.Background(), root, testSettings(), nil)
	require.NoError(t, err)
	got := collect(t, ch)

	require.Len(t, got, 2)
	// WalkDir is lexical, so the order is stable across runs.
	require.Equal(t, filepath.Join(root, "apps", "Setup_A.exe"), got[0].Path)
	require.Equal(t, filepath.Join(root, "zeta", "Install_B.msi"), got[1].Path)
	require.Equal(t, ".exe", got[0].Extension)
	require.EqualValues(t, 2048, got[0].Size)
	require.Nil(t, got[0].Metadata)
}

func TestScanPrunesIgnoredDirsAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "Setup.exe"), 2048)
	writeFile(t, filepath.Join(root, "keep", "Temp", "Setup.exe"), 2048)
	writeFile(t, filepath.Join(root, "Redistributables", "vcredist.exe"), 2048)

	ch, err := Scan(context.Background(), root, testSettings(), nil)
	require.NoError(t, err)
	got := collect(t, ch)

	require.Len(t, got, 1)
	require.Equal(t, filepath.Join(root, "keep", "Setup.exe"), got[0].Path)
}

func TestScanRootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "not-a-dir.exe")
	writeFile(t, file, 10)

	_, err := Scan(context.Background(), filepath.Join(root, "missing"), testSettings(), nil)
	require.Error(t, err)

	_, err = Scan(context.Background(), file, testSettings(), nil)
	require.Error(t, err)
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.exe", "b.exe", "c.exe", "d.exe"} {
		writeFile(t, filepath.Join(root, name), 2048)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Scan(ctx, root, testSettings(), nil)
	require.NoError(t, err)

	<-ch
	cancel()
	// The channel must close promptly; draining must not hang.
	for range ch {
	}
}

type stubReader struct {
	meta *extract.Metadata
	err  error
}

func (s stubReader) Extract(path, ext string) (*extract.Metadata, error) {
	return s.meta, s.err
}

func TestScanAttachesMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Setup.exe"), 2048)

	meta := &extract.Metadata{ProductName: "Petra", Version: "2.0"}
	ch, err := Scan(context.Background(), root, testSettings(), stubReader{meta: meta})
	require.NoError(t, err)
	got := collect(t, ch)

	require.Len(t, got, 1)
	require.Equal(t, meta, got[0].Metadata)
}

func TestScanExtractionFailureDegradesToNilMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Setup.exe"), 2048)

	ch, err := Scan(context.Background(), root, testSettings(), stubReader{err: extract.ErrUnsupported})
	require.NoError(t, err)
	got := collect(t, ch)

	require.Len(t, got, 1)
	require.Nil(t, got[0].Metadata)
}
