package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const uninstallPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

func TestMemStoreExists(t *testing.T) {
	m := NewMemStore()
	m.SetValue("HKLM", `SOFTWARE\Vendor\App`, "DisplayName", "App")

	ok, err := m.Exists("HKLM", `SOFTWARE\Vendor\App`)
	require.NoError(t, err)
	require.True(t, ok)

	// Parent paths exist implicitly.
	ok, err = m.Exists("HKLM", `SOFTWARE\Vendor`)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Exists("HKLM", `SOFTWARE\Other`)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemStoreIsCaseInsensitive(t *testing.T) {
	m := NewMemStore()
	m.SetValue("HKLM", `Software\Vendor\App`, "DisplayVersion", "1.2")

	ok, err := m.Exists("hklm", `SOFTWARE\VENDOR\APP`)
	require.NoError(t, err)
	require.True(t, ok)

	v, present, err := m.ReadValue("HKLM", `SOFTWARE\Vendor`, "App", "DisplayVersion")
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "1.2", v)
}

func TestMemStoreListChildrenSorted(t *testing.T) {
	m := NewMemStore()
	m.SetValue("HKLM", uninstallPath+`\{BBB}`, "DisplayName", "B")
	m.SetValue("HKLM", uninstallPath+`\{AAA}`, "DisplayName", "A")
	m.SetValue("HKLM", uninstallPath+`\{AAA}\sub`, "X", "Y")

	children, err := m.ListChildren("HKLM", uninstallPath)
	require.NoError(t, err)
	require.Equal(t, []string{"{aaa}", "{bbb}"}, children)
}

func TestMemStoreReadValueMissing(t *testing.T) {
	m := NewMemStore()
	m.CreatePath("HKLM", `SOFTWARE\Vendor\App`)

	_, present, err := m.ReadValue("HKLM", `SOFTWARE\Vendor\App`, "", "DisplayName")
	require.NoError(t, err)
	require.False(t, present)

	_, present, err = m.ReadValue("HKLM", `SOFTWARE\Nothing`, "", "DisplayName")
	require.NoError(t, err)
	require.False(t, present)
}

func TestLoadFile(t *testing.T) {
	doc := `
roots:
  HKLM:
    'SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\{GUID-1}':
      DisplayName: Petra 2
      DisplayVersion: "2.0"
    'SOFTWARE\Vendor\Petra': {}
`
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)

	v, present, err := m.ReadValue("HKLM", uninstallPath, "{GUID-1}", "DisplayVersion")
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "2.0", v)

	ok, err := m.Exists("HKLM", `SOFTWARE\Vendor\Petra`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots: [nope"), 0o644))
	_, err = LoadFile(path)
	require.Error(t, err)
}
