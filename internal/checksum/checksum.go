// Package checksum computes artifact digests and assembles the
// checksums manifest uploaded alongside release artifacts.
package checksum

import (
	"fmt"
	"os"
	"sort"
	"strings"

	// Register the hash implementations go-digest dispatches to.
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/opencontainers/go-digest"
)

// FileDigest streams the file at path through the given algorithm. The
// algorithm often comes from task input, so an unrecognized one is a
// returned error, never a panic.
func FileDigest(path string, alg digest.Algorithm) (digest.Digest, error) {
	if !alg.Available() {
		return "", fmt.Errorf("digest %s: unsupported algorithm %q", path, alg)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	defer f.Close()

	d, err := alg.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return d, nil
}

// Entry is one artifact's row in a checksums manifest.
type Entry struct {
	Name   string
	Size   int64
	Digest digest.Digest
}

// ManifestLine renders one manifest row in the canonical
// "<hex> <algorithm> <size> <name>" layout.
func ManifestLine(e Entry) string {
	return fmt.Sprintf("%s %s %d %s", e.Digest.Encoded(), e.Digest.Algorithm(), e.Size, e.Name)
}

// Manifest renders a full checksums document, one row per artifact,
// sorted by artifact name so repeated runs produce identical bytes.
func Manifest(entries []Entry) string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, e := range sorted {
		b.WriteString(ManifestLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// SummaryName is the artifact name of the checksums document for a
// product release.
func SummaryName(product, version string) string {
	return fmt.Sprintf("%s-%s.checksums", product, version)
}
