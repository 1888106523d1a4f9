//go:build windows

// pkg/installer/verify_windows.go - independent product verification
// through WMI.

package installer

import (
	"fmt"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

// win32Product mirrors the fields we read from Win32_Product.
type win32Product struct {
	IdentifyingNumber string
}

// WMIProductChecker consults the Windows Installer product inventory via
// WMI. Win32_Product queries are slow but authoritative, which is the
// right trade for a once-per-install verification.
type WMIProductChecker struct{}

func (WMIProductChecker) Installed(productCode string) (bool, error) {
	code := strings.ReplaceAll(productCode, "'", "")
	var products []win32Product
	query := fmt.Sprintf("SELECT IdentifyingNumber FROM Win32_Product WHERE IdentifyingNumber = '%s'", code)
	if err := wmi.Query(query, &products); err != nil {
		return false, fmt.Errorf("querying product inventory: %w", err)
	}
	return len(products) > 0, nil
}

// NewProductChecker returns the platform product checker.
func NewProductChecker() ProductChecker {
	return WMIProductChecker{}
}
