package mover

import (
	"regexp"
	"strings"

	"github.com/matgreaves/shipworker/paths"
)

// MapReleaseKeys maps candidate object keys to their release
// destinations for a push-to-releases promotion. Keys outside the
// candidates prefix are ignored; excluded keys are skipped; keys under a
// listed partner's repack prefix move to that partner's release prefix;
// repack keys of unlisted partners never promote.
func MapReleaseKeys(keys []string, product, version string, buildNumber int, partners []string, excludes []*regexp.Regexp) (map[string]string, error) {
	candPrefix, err := paths.CandidatesPrefix(product, version, buildNumber)
	if err != nil {
		return nil, err
	}
	relPrefix, err := paths.ReleasesPrefix(product, version)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, key := range keys {
		if !strings.HasPrefix(key, candPrefix) {
			continue
		}
		if paths.MatchesExclude(key, excludes) {
			continue
		}

		if partner, ok := paths.PartnerMatch(key, candPrefix, partners); ok {
			partnerPrefix, err := paths.PartnerReleasesPrefix(product, version, partner)
			if err != nil {
				return nil, err
			}
			rest := strings.TrimPrefix(key, paths.PartnerCandidatesPrefix(candPrefix, partner))
			out[key] = partnerPrefix + rest
			continue
		}
		if strings.Contains(key, "partner-repacks/") {
			continue
		}

		out[key] = relPrefix + strings.TrimPrefix(key, candPrefix)
	}
	return out, nil
}
