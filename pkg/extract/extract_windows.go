//go:build windows

// pkg/extract/extract_windows.go - native metadata extraction via the
// version.dll resource APIs and the Windows Installer database.

package extract

import (
	"fmt"

	"github.com/gonutz/w32"
	"github.com/progadmins/prospect/pkg/capability"
	"github.com/progadmins/prospect/pkg/logging"
)

// winReader reads EXE version resources and MSI property tables.
type winReader struct{}

func init() {
	capability.Register("metadata.reader", capability.Provider{
		Name:     "windows-native",
		Priority: 10,
		Probe:    func() (interface{}, error) { return &winReader{}, nil },
	})
}

func (r *winReader) Extract(path, ext string) (*Metadata, error) {
	switch NormalizeExt(ext) {
	case ".msi":
		return msiMetadata(path)
	case ".exe":
		return exeMetadata(path)
	default:
		return nil, ErrUnsupported
	}
}

// exeMetadata reads the VS_VERSIONINFO resource of a PE file. Missing
// resources are an extraction failure, not an error condition to surface.
func exeMetadata(path string) (*Metadata, error) {
	size := w32.GetFileVersionInfoSize(path)
	if size == 0 {
		return nil, fmt.Errorf("no version resource in %s", path)
	}
	data := make([]byte, size)
	if !w32.GetFileVersionInfo(path, data) {
		return nil, fmt.Errorf("reading version resource of %s failed", path)
	}

	meta := &Metadata{}
	if fixed, ok := w32.VerQueryValueRoot(data); ok {
		ms, ls := fixed.FileVersionMS, fixed.FileVersionLS
		meta.Version = fmt.Sprintf("%d.%d.%d.%d",
			ms>>16, ms&0xffff, ls>>16, ls&0xffff)
	}

	translations, ok := w32.VerQueryValueTranslations(data)
	if !ok || len(translations) == 0 {
		// Some installers omit the translation table; try the common
		// en-US block anyway.
		translations = []string{"040904b0"}
	}
	tr := translations[0]
	read := func(item string) string {
		if v, ok := w32.VerQueryValueString(data, tr, item); ok {
			return v
		}
		return ""
	}
	meta.ProductName = read("ProductName")
	meta.Description = read("FileDescription")
	meta.Company = read("CompanyName")
	meta.OriginalFilename = read("OriginalFilename")
	if pv := read("ProductVersion"); pv != "" {
		meta.Version = pv
	}

	logging.Debug("exe metadata extracted",
		"path", path, "product", meta.ProductName, "version", meta.Version)
	return meta, nil
}
