package mover

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matgreaves/shipworker/paths"
)

// FileMapping is one file's upload plan: the canonical object name and
// every destination key it is copied to.
type FileMapping struct {
	S3Key         string
	Destinations  []string
	ChecksumsPath string
}

// Manifest maps locale → artifact filename → upload plan.
type Manifest struct {
	Mapping map[string]map[string]FileMapping
}

// NightlyManifest builds the upload plan for a nightly push: every file
// lands in the dated directory for this build and in the branch's
// latest directory. The "multi" pseudo-locale has no locale directory.
func NightlyManifest(args Args, filesByLocale map[string][]string) Manifest {
	product := strings.ToLower(args.Product)
	dated := fmt.Sprintf("%s-%s-%s", args.UploadDate, args.Branch, product)
	latest := fmt.Sprintf("latest-%s-%s", args.Branch, product)

	mapping := make(map[string]map[string]FileMapping, len(filesByLocale))
	for locale, files := range filesByLocale {
		byFile := make(map[string]FileMapping, len(files))
		for _, f := range files {
			key := fmt.Sprintf("%s-%s.%s.%s", product, args.Version, locale, f)
			byFile[f] = FileMapping{
				S3Key:        key,
				Destinations: []string{destPath(dated, locale, key), destPath(latest, locale, key)},
			}
		}
		mapping[locale] = byFile
	}
	return Manifest{Mapping: mapping}
}

// CandidatesManifest builds the upload plan for a candidates promotion:
// files land under the versioned build-numbered prefix, keyed by stage
// platform and locale.
func CandidatesManifest(args Args, filesByLocale map[string][]string) (Manifest, error) {
	prefix, err := paths.CandidatesPrefix(strings.ToLower(args.Product), args.Version, args.BuildNumber)
	if err != nil {
		return Manifest{}, err
	}

	mapping := make(map[string]map[string]FileMapping, len(filesByLocale))
	for locale, files := range filesByLocale {
		byFile := make(map[string]FileMapping, len(files))
		for _, f := range files {
			byFile[f] = FileMapping{
				S3Key:        f,
				Destinations: []string{destPath(prefix+args.StagePlatform, locale, f)},
			}
		}
		mapping[locale] = byFile
	}
	return Manifest{Mapping: mapping}, nil
}

// destPath joins a base directory, a locale directory, and a file key.
// The "multi" pseudo-locale collapses the locale directory.
func destPath(base, locale, key string) string {
	if locale == "multi" {
		return base + "/" + key
	}
	return base + "/" + locale + "/" + key
}

// Locales returns the manifest's locales in sorted order.
func (m Manifest) Locales() []string {
	locales := make([]string, 0, len(m.Mapping))
	for l := range m.Mapping {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}
