// Package task models the worker task definition: the JSON document a
// scheduling system hands to each worker binary. It owns decoding, schema
// validation, and the artifact map lookups that tell upload orchestration
// where each produced file belongs.
package task

// Definition is the top-level task document.
type Definition struct {
	// Payload carries everything the worker acts on.
	Payload Payload `json:"payload"`
}

// Payload is the worker-facing portion of a task definition. Which fields
// are present depends on the worker: beetmover tasks carry upstream
// artifacts and an artifact map, pushapk tasks carry channel/track/commit
// publishing knobs.
type Payload struct {
	UpstreamArtifacts []UpstreamArtifact `json:"upstreamArtifacts,omitempty"`
	ArtifactMap       []ArtifactMapEntry `json:"artifactMap,omitempty"`

	// Locale is the payload-level locale. It must agree with the locales
	// declared on upstream artifacts; Locales reconciles the two.
	Locale string `json:"locale,omitempty"`

	// Product, Version, and BuildNumber identify the build for candidate
	// and release pushes; version and build number override release
	// properties when both are present.
	Product     string `json:"product,omitempty"`
	Version     string `json:"version,omitempty"`
	BuildNumber int    `json:"build_number,omitempty"`

	UploadDate        string             `json:"upload_date,omitempty"`
	ReleaseProperties *ReleaseProperties `json:"releaseProperties,omitempty"`
	Partials          map[string]Partial `json:"partials,omitempty"`

	// Publishing knobs (pushapk tasks).
	Channel           string `json:"channel,omitempty"`
	TargetStore       string `json:"target_store,omitempty"`
	GooglePlayTrack   string `json:"google_play_track,omitempty"`
	RolloutPercentage *int   `json:"rollout_percentage,omitempty"`
	Commit            bool   `json:"commit,omitempty"`
}

// UpstreamArtifact names files produced by an upstream task that this
// task consumes.
type UpstreamArtifact struct {
	TaskID string   `json:"taskId"`
	Type   string   `json:"type"`
	Paths  []string `json:"paths"`
	Locale string   `json:"locale,omitempty"`
}

// ReleaseProperties describe the build being shipped.
type ReleaseProperties struct {
	AppName       string `json:"appName"`
	AppVersion    string `json:"appVersion"`
	Branch        string `json:"branch"`
	BuildID       string `json:"buildid"`
	HashType      string `json:"hashType"`
	Platform      string `json:"platform"`
	StagePlatform string `json:"stage_platform,omitempty"`
}

// Partial describes a partial update artifact and the build it updates from.
type Partial struct {
	ArtifactName        string `json:"artifact_name"`
	BuildID             string `json:"buildid"`
	Locale              string `json:"locale"`
	Platform            string `json:"platform"`
	PreviousBuildNumber string `json:"previousBuildNumber"`
	PreviousVersion     string `json:"previousVersion"`
}

// ArtifactMapEntry maps one upstream task/locale pair to the destinations
// of each file it produced.
type ArtifactMapEntry struct {
	TaskID string                `json:"taskId"`
	Locale string                `json:"locale"`
	Paths  map[string]PathConfig `json:"paths"`
}

// PathConfig is the destination record for a single file.
type PathConfig struct {
	Destinations         []string `json:"destinations"`
	ChecksumsPath        string   `json:"checksums_path"`
	FromBuildID          int64    `json:"from_buildid,omitempty"`
	UpdateBalrogManifest bool     `json:"update_balrog_manifest,omitempty"`
}

// Locales returns the canonical locale list for a payload: the locales
// declared on upstream artifacts, deduplicated in order of first
// appearance. When no artifact declares a locale, the payload-level
// locale (if any) is the sole entry. This is the one place locale
// reconciliation happens; callers must not re-derive it.
func Locales(p Payload) []string {
	var locales []string
	seen := map[string]bool{}
	for _, ua := range p.UpstreamArtifacts {
		if ua.Locale == "" || seen[ua.Locale] {
			continue
		}
		seen[ua.Locale] = true
		locales = append(locales, ua.Locale)
	}
	if len(locales) == 0 && p.Locale != "" {
		return []string{p.Locale}
	}
	return locales
}

// CheckLocaleConsistency verifies that a payload-level locale agrees with
// the locales declared on upstream artifacts. It fails when artifacts
// declare any locale other than the payload's.
func CheckLocaleConsistency(payloadLocale string, artifactLocales []string) error {
	if payloadLocale == "" || len(artifactLocales) == 0 {
		return nil
	}
	if len(artifactLocales) == 1 && artifactLocales[0] == payloadLocale {
		return nil
	}
	return &VerificationError{
		Locale: payloadLocale,
		Reason: ReasonLocaleMismatch,
		Detail: "payload locale disagrees with upstream artifact locales",
	}
}
