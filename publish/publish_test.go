package publish_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/matgreaves/shipworker/publish"
	"github.com/matgreaves/shipworker/task"
)

const auroraConfig = `
override_channel_model: choose_google_app_with_scope
apps:
  aurora:
    package_names: [org.mozilla.fennec_aurora]
    default_track: beta
    certificate_alias: aurora
    service_account: aurora@service.account.com
    credentials_file: aurora.p12
`

const focusConfig = `
override_channel_model: single_google_app
app:
  certificate_alias: focus
  package_names: [org.mozilla.focus]
  service_account: focus@service.account.com
  credentials_file: focus.p12
`

const fenixConfig = `
apps:
  production:
    package_names: [org.mozilla.fenix]
    certificate_alias: fenix
    google:
      default_track: internal
      service_account: fenix@service.account.com
      credentials_file: fenix.p12
`

func load(t *testing.T, doc string) publish.Config {
	t.Helper()
	cfg, err := publish.Load([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func intp(n int) *int { return &n }

func TestResolveScopedApp(t *testing.T) {
	got, err := publish.Resolve(load(t, auroraConfig), task.Payload{}, "aurora")
	if err != nil {
		t.Fatal(err)
	}

	want := publish.Directive{
		TargetStore:      publish.StoreGoogle,
		DryRun:           true,
		CertificateAlias: "aurora",
		Track:            "beta",
		Username:         "aurora@service.account.com",
		Secret:           "aurora.p12",
		PackageNames:     []string{"org.mozilla.fennec_aurora"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveTrackOverride(t *testing.T) {
	got, err := publish.Resolve(load(t, auroraConfig), task.Payload{GooglePlayTrack: "internal_qa"}, "aurora")
	if err != nil {
		t.Fatal(err)
	}
	if got.Track != "internal_qa" {
		t.Errorf("track = %q, want %q", got.Track, "internal_qa")
	}
}

func TestResolveRolloutPassthrough(t *testing.T) {
	got, err := publish.Resolve(load(t, auroraConfig), task.Payload{RolloutPercentage: intp(10)}, "aurora")
	if err != nil {
		t.Fatal(err)
	}
	if got.RolloutPercentage == nil || *got.RolloutPercentage != 10 {
		t.Errorf("rollout = %v, want 10", got.RolloutPercentage)
	}

	got, err = publish.Resolve(load(t, auroraConfig), task.Payload{}, "aurora")
	if err != nil {
		t.Fatal(err)
	}
	if got.RolloutPercentage != nil {
		t.Errorf("rollout = %v, want nil when absent", got.RolloutPercentage)
	}
}

func TestResolveSingleApp(t *testing.T) {
	got, err := publish.Resolve(load(t, focusConfig), task.Payload{Channel: "beta"}, "focus")
	if err != nil {
		t.Fatal(err)
	}

	want := publish.Directive{
		TargetStore:      publish.StoreGoogle,
		DryRun:           true,
		CertificateAlias: "focus",
		Track:            "beta",
		Username:         "focus@service.account.com",
		Secret:           "focus.p12",
		PackageNames:     []string{"org.mozilla.focus"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveChannelKeyedApps(t *testing.T) {
	// The nested google section supplies the track and account; the
	// channel picks the app section, not the track.
	got, err := publish.Resolve(load(t, fenixConfig), task.Payload{Channel: "production"}, "fenix")
	if err != nil {
		t.Fatal(err)
	}

	want := publish.Directive{
		TargetStore:      publish.StoreGoogle,
		DryRun:           true,
		CertificateAlias: "fenix",
		Track:            "internal",
		Username:         "fenix@service.account.com",
		Secret:           "fenix.p12",
		PackageNames:     []string{"org.mozilla.fenix"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveExplicitGoogleTarget(t *testing.T) {
	got, err := publish.Resolve(load(t, fenixConfig), task.Payload{Channel: "production", TargetStore: "google"}, "fenix")
	if err != nil {
		t.Fatal(err)
	}
	if got.TargetStore != publish.StoreGoogle {
		t.Errorf("target store = %q", got.TargetStore)
	}
}

func TestResolveUnsupportedTarget(t *testing.T) {
	_, err := publish.Resolve(load(t, fenixConfig), task.Payload{Channel: "production", TargetStore: "amazon"}, "fenix")
	var terr *publish.TargetError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TargetError, got %v", err)
	}
	if terr.Target != "amazon" {
		t.Errorf("target = %q", terr.Target)
	}
}

func TestResolveUnknownApp(t *testing.T) {
	_, err := publish.Resolve(load(t, auroraConfig), task.Payload{}, "nightly")
	var serr *publish.ShapeError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ShapeError, got %v", err)
	}
	if serr.App != "nightly" {
		t.Errorf("app = %q", serr.App)
	}
}

func TestResolveUnknownChannel(t *testing.T) {
	_, err := publish.Resolve(load(t, fenixConfig), task.Payload{Channel: "nightly"}, "fenix")
	var serr *publish.ShapeError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ShapeError, got %v", err)
	}
}

func TestResolveNoTrack(t *testing.T) {
	// The flat single-app shape may resolve no track at all.
	got, err := publish.Resolve(load(t, focusConfig), task.Payload{}, "focus")
	if err != nil {
		t.Fatal(err)
	}
	if got.Track != "" {
		t.Errorf("track = %q, want empty", got.Track)
	}

	// Every other shape requires one.
	noTrack := `
override_channel_model: choose_google_app_with_scope
apps:
  aurora:
    package_names: [org.mozilla.fennec_aurora]
    certificate_alias: aurora
    service_account: aurora@service.account.com
    credentials_file: aurora.p12
`
	_, err = publish.Resolve(load(t, noTrack), task.Payload{}, "aurora")
	var terr *publish.TrackError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TrackError, got %v", err)
	}
	if terr.App != "aurora" {
		t.Errorf("app = %q", terr.App)
	}
}

// Dry run must hold for all three commit states: absent, false, true.
func TestDryRunStates(t *testing.T) {
	tests := []struct {
		payload string
		dryRun  bool
	}{
		{`{"channel": "beta"}`, true},
		{`{"channel": "beta", "commit": false}`, true},
		{`{"channel": "beta", "commit": true}`, false},
	}

	for _, tt := range tests {
		var payload task.Payload
		if err := json.Unmarshal([]byte(tt.payload), &payload); err != nil {
			t.Fatal(err)
		}
		got, err := publish.Resolve(load(t, focusConfig), payload, "focus")
		if err != nil {
			t.Fatal(err)
		}
		if got.DryRun != tt.dryRun {
			t.Errorf("payload %s: DryRun = %v, want %v", tt.payload, got.DryRun, tt.dryRun)
		}
	}
}

func TestLoadRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `{}`},
		{"both shapes", "app:\n  certificate_alias: a\napps:\n  b:\n    certificate_alias: b\n"},
		{"unknown model", "override_channel_model: choose_amazon_app\napps:\n  a:\n    certificate_alias: a\n"},
		{"single app without app", "override_channel_model: single_google_app\napps:\n  a:\n    certificate_alias: a\n"},
		{"scoped without apps", "override_channel_model: choose_google_app_with_scope\napp:\n  certificate_alias: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := publish.Load([]byte(tt.doc))
			var serr *publish.ShapeError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *ShapeError, got %v", err)
			}
		})
	}
}

func TestLoadFlatAppWithoutModel(t *testing.T) {
	// A sole app section with no model override is the implicit
	// single-app shape.
	cfg := load(t, "app:\n  certificate_alias: flat\n  package_names: [org.example.flat]\n  service_account: flat@service.account.com\n  credentials_file: flat.p12\n")
	got, err := publish.Resolve(cfg, task.Payload{Channel: "beta"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Track != "beta" || got.CertificateAlias != "flat" {
		t.Errorf("Resolve = %+v", got)
	}
}
