// Package publish resolves which app-store account, track, and rollout
// parameters apply to a release task. The static configuration document
// is decoded once into a tagged union; resolution over it is a pure
// function, safe to share across concurrent publish flows.
package publish

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChannelModel discriminates the recognized configuration shapes.
type ChannelModel string

const (
	// ModelChannelKeyed is the default shape: a map of channel name to
	// app section, with the task's channel selecting the section.
	ModelChannelKeyed ChannelModel = ""

	// ModelSingleGoogleApp is a flat shape with one app section; the
	// task's channel is used directly as the Play track.
	ModelSingleGoogleApp ChannelModel = "single_google_app"

	// ModelGoogleAppWithScope keys app sections by app name rather than
	// channel; the worker's scope supplies the name.
	ModelGoogleAppWithScope ChannelModel = "choose_google_app_with_scope"
)

// Config is a decoded static publish configuration document. Exactly one
// of App and Apps is set, matching the shape named by ChannelModel.
type Config struct {
	ChannelModel ChannelModel         `yaml:"override_channel_model"`
	App          *AppConfig           `yaml:"app"`
	Apps         map[string]AppConfig `yaml:"apps"`
}

// AppConfig is one app section. Store fields may appear at the top level
// or inside a nested Google section; the nested section wins on conflict.
type AppConfig struct {
	StoreSection `yaml:",inline"`

	Google *StoreSection `yaml:"google"`
}

// StoreSection holds the Google Play publishing fields.
type StoreSection struct {
	CertificateAlias string   `yaml:"certificate_alias"`
	ServiceAccount   string   `yaml:"service_account"`
	CredentialsFile  string   `yaml:"credentials_file"`
	PackageNames     []string `yaml:"package_names"`
	DefaultTrack     string   `yaml:"default_track"`
}

// section returns the effective Google Play section for an app: the
// nested google section merged over the top-level fields.
func (a AppConfig) section() StoreSection {
	s := a.StoreSection
	if a.Google == nil {
		return s
	}
	if a.Google.CertificateAlias != "" {
		s.CertificateAlias = a.Google.CertificateAlias
	}
	if a.Google.ServiceAccount != "" {
		s.ServiceAccount = a.Google.ServiceAccount
	}
	if a.Google.CredentialsFile != "" {
		s.CredentialsFile = a.Google.CredentialsFile
	}
	if len(a.Google.PackageNames) > 0 {
		s.PackageNames = a.Google.PackageNames
	}
	if a.Google.DefaultTrack != "" {
		s.DefaultTrack = a.Google.DefaultTrack
	}
	return s
}

// Load decodes a static publish configuration document and enforces that
// it matches exactly one recognized shape.
func Load(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("publish config: %w", err)
	}
	if err := checkShape(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func checkShape(cfg Config) error {
	switch cfg.ChannelModel {
	case ModelChannelKeyed, ModelSingleGoogleApp, ModelGoogleAppWithScope:
	default:
		return &ShapeError{Detail: fmt.Sprintf("unknown override_channel_model %q", cfg.ChannelModel)}
	}

	hasApp := cfg.App != nil
	hasApps := len(cfg.Apps) > 0
	switch {
	case hasApp && hasApps:
		return &ShapeError{Detail: "both app and apps are set; exactly one shape must be active"}
	case !hasApp && !hasApps:
		return &ShapeError{Detail: "neither app nor apps is set"}
	case cfg.ChannelModel == ModelSingleGoogleApp && !hasApp:
		return &ShapeError{Detail: "single_google_app requires a flat app section"}
	case cfg.ChannelModel == ModelGoogleAppWithScope && !hasApps:
		return &ShapeError{Detail: "choose_google_app_with_scope requires an apps mapping"}
	}
	return nil
}

// singleApp reports whether the document is the flat single-app shape,
// either explicitly via single_google_app or implicitly via a sole app
// section with no model override.
func (c Config) singleApp() bool {
	return c.ChannelModel == ModelSingleGoogleApp || (c.ChannelModel == ModelChannelKeyed && c.App != nil)
}
