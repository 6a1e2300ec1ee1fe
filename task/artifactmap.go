package task

import (
	"path"
	"sort"
)

// FileConfig locates the destination record for one file produced by an
// upstream task. The file matches either by its full path key or by the
// key's final path segment. Lookups with identical arguments always
// return identical records.
//
// The returned error is always a *VerificationError naming the filename,
// task id, and locale; its Reason distinguishes whether the task, the
// locale, or the file itself was absent.
func FileConfig(artifactMap []ArtifactMapEntry, filename, taskID, locale string) (PathConfig, error) {
	taskSeen := false
	localeSeen := false
	for _, entry := range artifactMap {
		if entry.TaskID != taskID {
			continue
		}
		taskSeen = true
		if entry.Locale != locale {
			continue
		}
		localeSeen = true

		if cfg, ok := entry.Paths[filename]; ok {
			return cfg, nil
		}
		// Sorted so a basename shared by several keys resolves the same
		// way on every call.
		for _, p := range sortedPathKeys(entry.Paths) {
			if path.Base(p) == filename {
				return entry.Paths[p], nil
			}
		}
	}

	reason := ReasonFileNotFound
	switch {
	case !taskSeen:
		reason = ReasonTaskNotFound
	case !localeSeen:
		reason = ReasonLocaleNotFound
	}
	return PathConfig{}, &VerificationError{
		Filename: filename,
		TaskID:   taskID,
		Locale:   locale,
		Reason:   reason,
	}
}

// FullArtifactMapPath returns the literal path key for the given locale
// whose key equals p or whose final path segment equals p. Unlike
// FileConfig, absence is not an error.
func FullArtifactMapPath(artifactMap []ArtifactMapEntry, p, locale string) (string, bool) {
	for _, entry := range artifactMap {
		if entry.Locale != locale {
			continue
		}
		if _, ok := entry.Paths[p]; ok {
			return p, true
		}
		for _, key := range sortedPathKeys(entry.Paths) {
			if path.Base(key) == p {
				return key, true
			}
		}
	}
	return "", false
}

func sortedPathKeys(paths map[string]PathConfig) []string {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
