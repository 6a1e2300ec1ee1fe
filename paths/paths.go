// Package paths computes canonical release-storage key prefixes and
// per-file destination paths. Every function is a pure computation over
// its arguments: identical inputs always produce identical output, so
// callers may share the package freely across concurrent upload flows.
package paths

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// InstallerArtifacts are the basenames that classify a file as an
// installer regardless of its directory prefix.
var InstallerArtifacts = []string{
	"target.zip",
	"target.tar.gz",
	"target.tar.bz2",
	"target.tar.xz",
	"target.installer.exe",
	"target.dmg",
	"target.pkg",
	"target.apk",
}

// BuildhubArtifact is the basename of the buildhub metadata artifact.
var BuildhubArtifact = []string{"buildhub.json"}

// productFamilies maps product names to the storage family directory
// under pub/. Products not listed here use their own name. The table is
// shared by all prefix builders so candidate and release prefixes can
// never disagree on the family for a given product.
var productFamilies = map[string]string{
	"fennec": "mobile",
	"mobile": "mobile",
}

func family(product string) string {
	if f, ok := productFamilies[product]; ok {
		return f
	}
	return product
}

// CandidatesPrefix returns the storage prefix for a candidate build:
// pub/<family>/candidates/<version>-candidates/build<buildNumber>/.
func CandidatesPrefix(product, version string, buildNumber int) (string, error) {
	if version == "" {
		return "", fmt.Errorf("candidates prefix: version is required")
	}
	if buildNumber <= 0 {
		return "", fmt.Errorf("candidates prefix: build number must be positive, got %d", buildNumber)
	}
	return fmt.Sprintf("pub/%s/candidates/%s-candidates/build%d/", family(product), version, buildNumber), nil
}

// ReleasesPrefix returns the storage prefix for a public release:
// pub/<family>/releases/<version>/.
func ReleasesPrefix(product, version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("releases prefix: version is required")
	}
	return fmt.Sprintf("pub/%s/releases/%s/", family(product), version), nil
}

// PartnerCandidatesPrefix returns the partner-repack prefix nested under
// a candidates prefix. partnerPath is "<group>/<subgroup>".
func PartnerCandidatesPrefix(base, partnerPath string) string {
	return fmt.Sprintf("%spartner-repacks/%s/v1/", base, partnerPath)
}

// PartnerReleasesPrefix returns the release prefix for a partner repack:
// pub/<family>/releases/partners/<partnerPath>/<version>/.
func PartnerReleasesPrefix(product, version, partnerPath string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("partner releases prefix: version is required")
	}
	return fmt.Sprintf("pub/%s/releases/partners/%s/%s/", family(product), partnerPath, version), nil
}

// CompileExcludes compiles exclusion patterns with whole-key anchoring.
// A pattern that is already anchored compiles to the same match set.
func CompileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`\A(?:` + p + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// MatchesExclude reports whether any exclusion pattern matches the whole
// key. Keys that match are skipped by upload orchestration.
func MatchesExclude(key string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// PartnerMatch scans partners in order for the first "<group>/<subgroup>"
// whose repack prefix under base contains key. Order is the tie-break
// when several partners could match; the first listed partner wins.
func PartnerMatch(key, base string, partners []string) (string, bool) {
	for _, partner := range partners {
		if strings.HasPrefix(key, PartnerCandidatesPrefix(base, partner)) {
			return partner, true
		}
	}
	return "", false
}

// ExistsOrEndsWith reports whether filename, or its final path segment,
// exactly equals one of basenames. Matching is exact: a filename that
// merely has a basename as a substring or suffix does not match.
func ExistsOrEndsWith(filename string, basenames []string) bool {
	base := path.Base(filename)
	for _, b := range basenames {
		if filename == b || base == b {
			return true
		}
	}
	return false
}

// ProductName derives the public product name from the application name
// and stage platform. Devedition platforms override the application name
// while preserving its capitalization.
func ProductName(appName, stagePlatform string, lowercaseApp bool) string {
	if strings.Contains(stagePlatform, "devedition") {
		if appName != "" && appName[0] >= 'A' && appName[0] <= 'Z' {
			return "Devedition"
		}
		return "devedition"
	}
	if lowercaseApp {
		return strings.ToLower(appName)
	}
	return appName
}
