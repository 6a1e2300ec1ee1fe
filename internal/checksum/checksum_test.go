package checksum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/matgreaves/shipworker/internal/checksum"
)

const fixture = "Hello world from shipworker!"

const (
	fixtureSHA256 = "6e649063517c27ed0a82512a947f0f2d866a29a14bed366f8bf3792ca4f261bf"
	fixtureSHA512 = "43ea18041603490fab83e94bdcac6f848553d0f5b56f4eeab78f585956be71ff4207eca61de2fe78828f7fc8be5049a74cdd56bd7f0e642f215d08ad2681f6da"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "target.txt")
	if err := os.WriteFile(p, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFileDigest(t *testing.T) {
	p := writeFixture(t)

	tests := []struct {
		alg  digest.Algorithm
		want string
	}{
		{digest.SHA256, fixtureSHA256},
		{digest.SHA512, fixtureSHA512},
	}

	for _, tt := range tests {
		d, err := checksum.FileDigest(p, tt.alg)
		if err != nil {
			t.Fatal(err)
		}
		if d.Encoded() != tt.want {
			t.Errorf("%s digest = %s, want %s", tt.alg, d.Encoded(), tt.want)
		}
	}
}

func TestFileDigestUnsupportedAlgorithm(t *testing.T) {
	// hashType flows in from the task document, so a worker must fail
	// cleanly on algorithms it does not carry.
	p := writeFixture(t)
	_, err := checksum.FileDigest(p, digest.Algorithm("sha1"))
	if err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
	if !strings.Contains(err.Error(), "sha1") {
		t.Errorf("error %q does not name the algorithm", err)
	}
}

func TestFileDigestMissingFile(t *testing.T) {
	if _, err := checksum.FileDigest(filepath.Join(t.TempDir(), "nope"), digest.SHA256); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManifest(t *testing.T) {
	entries := []checksum.Entry{
		{Name: "firefox-99.0.tar.bz2", Size: 42, Digest: digest.Digest("sha512:" + fixtureSHA512)},
		{Name: "firefox-99.0.checksums.asc", Size: 7, Digest: digest.Digest("sha256:" + fixtureSHA256)},
	}

	got := checksum.Manifest(entries)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("manifest lines = %d", len(lines))
	}

	// Sorted by artifact name.
	if !strings.HasSuffix(lines[0], "firefox-99.0.checksums.asc") {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[1] != fixtureSHA512+" sha512 42 firefox-99.0.tar.bz2" {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestSummaryName(t *testing.T) {
	if got := checksum.SummaryName("firefox", "99.0"); got != "firefox-99.0.checksums" {
		t.Errorf("SummaryName = %q", got)
	}
}
