// pkg/extract/extract.go - embedded package metadata readers.

package extract

import (
	"errors"
	"strings"

	"github.com/progadmins/prospect/pkg/capability"
)

// Metadata is what a package declares about itself. Every field is
// optional; an empty record is still a valid extraction result.
type Metadata struct {
	ProductName      string
	Description      string
	Version          string
	ProductCode      string // unique product identifier, MSI only
	Company          string
	OriginalFilename string
}

// Empty reports whether no field carries information.
func (m *Metadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.ProductName == "" && m.Description == "" && m.Version == "" &&
		m.ProductCode == "" && m.Company == "" && m.OriginalFilename == ""
}

// Reader extracts metadata from a package file. A nil Metadata with a
// non-nil error means extraction failed; the candidate then degrades to
// heuristic-only matching. Implementations must not panic past this
// boundary.
type Reader interface {
	Extract(path, ext string) (*Metadata, error)
}

// ErrUnsupported is returned when no extractor exists for the host or
// the package format.
var ErrUnsupported = errors.New("metadata extraction unsupported")

// nopReader is the lowest-priority fallback on hosts with no native
// metadata facilities. It always degrades candidates to heuristics.
type nopReader struct{}

func (nopReader) Extract(path, ext string) (*Metadata, error) {
	return nil, ErrUnsupported
}

func init() {
	capability.Register("metadata.reader", capability.Provider{
		Name:     "none",
		Priority: 0,
		Probe:    func() (interface{}, error) { return nopReader{}, nil },
	})
}

// NewReader resolves the best available metadata reader for this host.
func NewReader() (Reader, error) {
	instance, _, err := capability.Resolve("metadata.reader")
	if err != nil {
		return nil, err
	}
	return instance.(Reader), nil
}

// NormalizeExt lowercases an extension and ensures the leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
