// Package xpi extracts language-pack metadata from XPI archives. An XPI
// is a zip whose manifest.json carries the langpack id, version, and
// target application range.
package xpi

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
)

// Info is the metadata the signing flow needs from one langpack.
type Info struct {
	// ID is the langpack's gecko id, e.g. "langpack-de@firefox.mozilla.org".
	ID string

	// Locale is derived from the langpack id.
	Locale string

	Version    string
	MinVersion string

	// Path is the archive the metadata came from.
	Path string
}

type manifest struct {
	Version      string `json:"version"`
	Langpack     string `json:"langpack_id"`
	Applications struct {
		Gecko struct {
			ID               string `json:"id"`
			StrictMinVersion string `json:"strict_min_version"`
		} `json:"gecko"`
	} `json:"applications"`
	BrowserSpecific struct {
		Gecko struct {
			ID               string `json:"id"`
			StrictMinVersion string `json:"strict_min_version"`
		} `json:"gecko"`
	} `json:"browser_specific_settings"`
}

// LangpackInfo reads langpack metadata from the XPI at path.
func LangpackInfo(path string) (Info, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Info{}, fmt.Errorf("xpi %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "manifest.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Info{}, fmt.Errorf("xpi %s: manifest.json: %w", path, err)
		}
		defer rc.Close()
		return parseManifest(rc, path)
	}
	return Info{}, fmt.Errorf("xpi %s: no manifest.json", path)
}

func parseManifest(r io.Reader, path string) (Info, error) {
	var m manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Info{}, fmt.Errorf("xpi %s: manifest.json: %w", path, err)
	}

	id := m.Applications.Gecko.ID
	minVersion := m.Applications.Gecko.StrictMinVersion
	if id == "" {
		id = m.BrowserSpecific.Gecko.ID
		minVersion = m.BrowserSpecific.Gecko.StrictMinVersion
	}
	if id == "" {
		return Info{}, fmt.Errorf("xpi %s: manifest.json has no gecko id", path)
	}
	if m.Langpack == "" {
		return Info{}, fmt.Errorf("xpi %s: manifest.json has no langpack_id", path)
	}

	return Info{
		ID:         id,
		Locale:     m.Langpack,
		Version:    m.Version,
		MinVersion: minVersion,
		Path:       path,
	}, nil
}
