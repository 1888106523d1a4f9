// pkg/scanner/scanner.go - filesystem discovery of candidate packages.

package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/progadmins/prospect/pkg/config"
	"github.com/progadmins/prospect/pkg/extract"
	"github.com/progadmins/prospect/pkg/logging"
)

// CandidateFile is one package discovered during a scan. Metadata is nil
// when extraction failed; such candidates still flow downstream and are
// matched on filename and heuristics alone.
type CandidateFile struct {
	Path      string
	Size      int64
	Extension string // lowercase, with dot
	Metadata  *extract.Metadata
}

// Scan walks root and streams candidates in traversal order. Directories
// whose name is in the ignore set are pruned entirely. Files are rejected
// on extension and size before any metadata I/O. The walk is lexically
// ordered, so output is deterministic for a given tree snapshot.
//
// The returned channel is closed when the walk finishes or ctx is
// cancelled; cancellation takes effect between directory entries.
func Scan(ctx context.Context, root string, set config.ScanSettings, reader extract.Reader) (<-chan CandidateFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	ignored := make(map[string]struct{}, len(set.IgnoredDirNames))
	for _, name := range set.IgnoredDirNames {
		ignored[strings.ToLower(name)] = struct{}{}
	}
	accepted := make(map[string]struct{}, len(set.Extensions))
	for _, ext := range set.Extensions {
		accepted[extract.NormalizeExt(ext)] = struct{}{}
	}

	out := make(chan CandidateFile)
	go func() {
		defer close(out)
		var files, skippedSize, skippedExt, candidates int

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				// Unreadable entries are logged and skipped, never fatal.
				logging.Warn("scan: unreadable path skipped", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if _, skip := ignored[strings.ToLower(d.Name())]; skip {
					logging.Debug("scan: directory pruned", "path", path)
					return filepath.SkipDir
				}
				return nil
			}

			files++
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if _, ok := accepted[ext]; !ok {
				skippedExt++
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				logging.Warn("scan: stat failed", "path", path, "error", err)
				return nil
			}
			if fi.Size() < set.MinFileSizeBytes {
				skippedSize++
				return nil
			}

			candidate := CandidateFile{
				Path:      path,
				Size:      fi.Size(),
				Extension: ext,
			}
			if reader != nil {
				meta, err := reader.Extract(path, ext)
				if err != nil {
					logging.Debug("scan: metadata extraction failed, degrading to heuristics",
						"path", path, "error", err)
				} else {
					candidate.Metadata = meta
				}
			}

			candidates++
			select {
			case out <- candidate:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})

		if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
			logging.Error("scan aborted", "root", root, "error", err)
			return
		}
		logging.Info("scan complete", "root", root,
			"files", files, "candidates", candidates,
			"skipped_ext", skippedExt, "skipped_size", skippedSize)
	}()
	return out, nil
}
