//go:build windows

// pkg/store/store_windows.go - registry-backed state store.

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/progadmins/prospect/pkg/capability"
	"golang.org/x/sys/windows/registry"
)

// RegistryStore reads the Windows registry through the Store interface.
// All access is read-only; both 32- and 64-bit views are visible through
// the default WOW64 redirection the caller's process sees.
type RegistryStore struct{}

func init() {
	capability.Register("state.store", capability.Provider{
		Name:     "windows-registry",
		Priority: 10,
		Probe: func() (interface{}, error) {
			// Probe a key that exists on every Windows install.
			s := &RegistryStore{}
			if _, err := s.Exists("HKLM", `SOFTWARE\Microsoft\Windows\CurrentVersion`); err != nil {
				return nil, err
			}
			return s, nil
		},
	})
}

func rootKey(root string) (registry.Key, error) {
	switch strings.ToUpper(root) {
	case "HKLM", "HKEY_LOCAL_MACHINE", "":
		return registry.LOCAL_MACHINE, nil
	case "HKCU", "HKEY_CURRENT_USER":
		return registry.CURRENT_USER, nil
	case "HKU", "HKEY_USERS":
		return registry.USERS, nil
	default:
		return 0, fmt.Errorf("unknown store root %q", root)
	}
}

func (s *RegistryStore) Exists(root, path string) (bool, error) {
	hive, err := rootKey(root)
	if err != nil {
		return false, err
	}
	k, err := registry.OpenKey(hive, path, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	k.Close()
	return true, nil
}

func (s *RegistryStore) ListChildren(root, path string) ([]string, error) {
	hive, err := rootKey(root)
	if err != nil {
		return nil, err
	}
	k, err := registry.OpenKey(hive, path, registry.READ)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	return k.ReadSubKeyNames(0)
}

func (s *RegistryStore) ReadValue(root, path, child, valueName string) (string, bool, error) {
	hive, err := rootKey(root)
	if err != nil {
		return "", false, err
	}
	full := path
	if child != "" {
		full = path + `\` + child
	}
	k, err := registry.OpenKey(hive, full, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer k.Close()
	v, _, err := k.GetStringValue(valueName)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(v), true, nil
}
