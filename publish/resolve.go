package publish

import (
	"github.com/matgreaves/shipworker/task"
)

// Store identifies a publishing target.
type Store string

// StoreGoogle is the only store currently wired.
const StoreGoogle Store = "google"

// Directive is the fully-resolved publish instruction handed to the
// store client. It is never mutated after Resolve returns it.
type Directive struct {
	TargetStore       Store
	DryRun            bool
	CertificateAlias  string
	Track             string
	RolloutPercentage *int
	Username          string
	Secret            string
	PackageNames      []string
}

// Resolve computes the publish directive for a task against a decoded
// static configuration. appName is the app selector granted by the
// worker's scope; it is ignored by shapes that do not key on app name.
//
// Track precedence, highest first: the payload's explicit track override,
// then the payload channel (single-app shape only), then the section's
// default track. Publishing is a dry run unless the payload explicitly
// commits.
func Resolve(cfg Config, payload task.Payload, appName string) (Directive, error) {
	if payload.TargetStore != "" && Store(payload.TargetStore) != StoreGoogle {
		return Directive{}, &TargetError{Target: payload.TargetStore}
	}

	app, track, err := selectApp(cfg, payload, appName)
	if err != nil {
		return Directive{}, err
	}
	// The flat single-app shape legitimately omits a track; every other
	// shape requires one.
	if track == "" && !cfg.singleApp() {
		return Directive{}, &TrackError{App: appName}
	}

	section := app.section()
	return Directive{
		TargetStore:       StoreGoogle,
		DryRun:            shouldDryRun(payload),
		CertificateAlias:  section.CertificateAlias,
		Track:             track,
		RolloutPercentage: payload.RolloutPercentage,
		Username:          section.ServiceAccount,
		Secret:            section.CredentialsFile,
		PackageNames:      section.PackageNames,
	}, nil
}

// selectApp picks the app section and the resolved track for the
// document's shape.
func selectApp(cfg Config, payload task.Payload, appName string) (AppConfig, string, error) {
	override := payload.GooglePlayTrack

	switch {
	case cfg.singleApp():
		track := override
		if track == "" {
			track = payload.Channel
		}
		return *cfg.App, track, nil

	case cfg.ChannelModel == ModelGoogleAppWithScope:
		app, ok := cfg.Apps[appName]
		if !ok {
			return AppConfig{}, "", &ShapeError{App: appName, Detail: "not present in apps mapping"}
		}
		track := override
		if track == "" {
			track = app.section().DefaultTrack
		}
		return app, track, nil

	default:
		app, ok := cfg.Apps[payload.Channel]
		if !ok {
			return AppConfig{}, "", &ShapeError{App: payload.Channel, Detail: "channel not present in apps mapping"}
		}
		track := override
		if track == "" {
			track = app.section().DefaultTrack
		}
		return app, track, nil
	}
}

// shouldDryRun is the explicit form of "dry run unless the payload
// commits": an absent or false commit flag publishes nothing.
func shouldDryRun(payload task.Payload) bool {
	return !payload.Commit
}
