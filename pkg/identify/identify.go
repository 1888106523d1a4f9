// pkg/identify/identify.go - matching candidate packages to cataloged
// programs, with a heuristic fallback for everything else.

package identify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/progadmins/prospect/pkg/catalog"
	"github.com/progadmins/prospect/pkg/config"
	"github.com/progadmins/prospect/pkg/logging"
	"github.com/progadmins/prospect/pkg/scanner"
)

// Kind discriminates the MatchResult variants.
type Kind int

const (
	// Matched means an identity rule of a cataloged program was satisfied.
	Matched Kind = iota
	// Heuristic means no catalog match, but the candidate scored at or
	// above the configured threshold as plausibly being an installer.
	Heuristic
	// Rejected means the candidate is excluded or scored below threshold.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Heuristic:
		return "heuristic"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MatchResult is the single outcome produced per candidate per pass.
type MatchResult struct {
	Kind   Kind
	Key    string  // program key, Matched only
	Score  float64 // heuristic score, Heuristic and score-based Rejected
	Reason string
}

// Identify maps one candidate to exactly one MatchResult.
//
// The evaluation order is load-bearing: catalog identity rules first (in
// catalog declaration order, first satisfied definition wins), then
// exclusion filters, then the heuristic scorer. An exclusion substring
// never suppresses a catalog match, only heuristic noise.
func Identify(c scanner.CandidateFile, cat *catalog.Catalog, det config.DetectionSettings) MatchResult {
	if cat != nil {
		for _, def := range cat.Programs() {
			if reason, ok := identityMatch(c, def.Identity); ok {
				logging.Debug("candidate matched catalog program",
					"path", c.Path, "key", def.Key, "rule", reason)
				return MatchResult{Kind: Matched, Key: def.Key, Reason: reason}
			}
		}
	}

	if reason, excluded := excluded(c, det); excluded {
		return MatchResult{Kind: Rejected, Reason: reason}
	}

	score := Score(c, det)
	if score >= det.HeuristicThreshold {
		return MatchResult{
			Kind:   Heuristic,
			Score:  score,
			Reason: fmt.Sprintf("heuristic score %.2f at or above threshold %.2f", score, det.HeuristicThreshold),
		}
	}
	return MatchResult{
		Kind:   Rejected,
		Score:  score,
		Reason: fmt.Sprintf("heuristic score %.2f below threshold %.2f", score, det.HeuristicThreshold),
	}
}

// identityMatch evaluates one program's identity rules in order: product
// name substrings, then description substrings, then filename globs (also
// tried against the embedded original filename).
func identityMatch(c scanner.CandidateFile, id catalog.IdentityRules) (string, bool) {
	var product, desc, origName string
	if c.Metadata != nil {
		product = strings.ToLower(c.Metadata.ProductName)
		desc = strings.ToLower(c.Metadata.Description)
		origName = strings.ToLower(c.Metadata.OriginalFilename)
	}
	base := strings.ToLower(filepath.Base(c.Path))

	if product != "" {
		for _, want := range id.ProductNames {
			if strings.Contains(product, strings.ToLower(want)) {
				return "product name ~ " + want, true
			}
		}
	}
	if desc != "" {
		for _, want := range id.Descriptions {
			if strings.Contains(desc, strings.ToLower(want)) {
				return "description ~ " + want, true
			}
		}
	}
	for _, pattern := range id.FilePatterns {
		p := strings.ToLower(pattern)
		if ok, _ := filepath.Match(p, base); ok {
			return "filename ~ " + pattern, true
		}
		if origName != "" {
			if ok, _ := filepath.Match(p, origName); ok {
				return "original filename ~ " + pattern, true
			}
		}
	}
	return "", false
}

// excluded applies the three configured exclusion filters to candidates
// that matched no catalog entry.
func excluded(c scanner.CandidateFile, det config.DetectionSettings) (string, bool) {
	fields := metadataFields(c)
	base := strings.ToLower(filepath.Base(c.Path))

	for _, sub := range det.ExcludePropertySubstrings {
		s := strings.ToLower(sub)
		for _, f := range fields {
			if strings.Contains(f, s) {
				return "property filter ~ " + sub, true
			}
		}
	}
	for _, sub := range det.ExcludeGenericNames {
		s := strings.ToLower(sub)
		for _, f := range fields {
			if strings.Contains(f, s) {
				return "generic name filter ~ " + sub, true
			}
		}
		if strings.Contains(base, s) {
			return "generic name filter ~ " + sub, true
		}
	}
	for _, sub := range det.ExcludeUninstallerHints {
		s := strings.ToLower(sub)
		if strings.Contains(base, s) {
			return "uninstaller hint ~ " + sub, true
		}
		for _, f := range fields {
			if strings.Contains(f, s) {
				return "uninstaller hint ~ " + sub, true
			}
		}
	}
	return "", false
}

// Score computes the heuristic installer-likelihood of a candidate using
// the configured weights. The result is clamped to [0, 1].
func Score(c scanner.CandidateFile, det config.DetectionSettings) float64 {
	w := det.Weights
	score := w.Base

	base := strings.ToLower(filepath.Base(c.Path))
	if c.Extension == ".msi" {
		score += w.MSIBonus
	}
	if c.Metadata != nil && c.Metadata.Version != "" {
		score += w.VersionPresent
	}

	installerKeywords := []string{"setup", "install", "installer", "wizard"}
	for _, kw := range installerKeywords {
		if strings.Contains(base, kw) {
			score += w.InstallerName
			break
		}
	}

	switch {
	case c.Size >= det.SizeLargeBytes:
		score += w.SizeLarge
	case c.Size >= det.SizeMediumBytes:
		score += w.SizeMedium
	}

	hinted := false
	for _, hint := range det.ExcludeUninstallerHints {
		h := strings.ToLower(hint)
		if strings.Contains(base, h) {
			hinted = true
			break
		}
		for _, f := range metadataFields(c) {
			if strings.Contains(f, h) {
				hinted = true
				break
			}
		}
		if hinted {
			break
		}
	}
	if hinted {
		score += w.UninstallHint
	} else if c.Metadata != nil && c.Metadata.ProductName != "" {
		score += w.CleanMetadata
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func metadataFields(c scanner.CandidateFile) []string {
	if c.Metadata == nil {
		return nil
	}
	var fields []string
	for _, f := range []string{
		c.Metadata.ProductName,
		c.Metadata.Description,
		c.Metadata.Company,
		c.Metadata.OriginalFilename,
	} {
		if f != "" {
			fields = append(fields, strings.ToLower(f))
		}
	}
	return fields
}
