//go:build windows

// pkg/extract/msi_windows.go - MSI property table extraction through the
// Windows Installer COM automation interface.

package extract

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

// msiMetadata reads the declared properties of an installer database.
// The Windows Installer object model has no direct Go binding worth
// carrying, so a short PowerShell bridge queries the Property table and
// hands back JSON.
func msiMetadata(msiPath string) (*Metadata, error) {
	psCommand := fmt.Sprintf(`
$msi = "%s"
$installer = New-Object -ComObject WindowsInstaller.Installer
$db = $installer.OpenDatabase($msi,0)
$view = $db.OpenView('SELECT Property, Value FROM Property')
$view.Execute()

$pairs = @{}
while($rec = $view.Fetch()) {
    $pairs[$rec.StringData(1)] = $rec.StringData(2)
}
$props = [PSCustomObject]@{
  ProductName    = $pairs["ProductName"]
  ProductVersion = $pairs["ProductVersion"]
  Manufacturer   = $pairs["Manufacturer"]
  Comments       = $pairs["Comments"]
  ProductCode    = $pairs["ProductCode"]
}
$props | ConvertTo-Json -Compress
`, msiPath)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", psCommand)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("querying MSI property table of %s: %w", msiPath, err)
	}

	var props map[string]string
	if err := json.Unmarshal(out, &props); err != nil {
		return nil, fmt.Errorf("parsing MSI properties of %s: %w", msiPath, err)
	}

	return &Metadata{
		ProductName: strings.TrimSpace(props["ProductName"]),
		Version:     strings.TrimSpace(props["ProductVersion"]),
		Company:     strings.TrimSpace(props["Manufacturer"]),
		Description: strings.TrimSpace(props["Comments"]),
		ProductCode: strings.TrimSpace(props["ProductCode"]),
	}, nil
}
