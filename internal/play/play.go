// Package play drives the Google Play edits workflow: open an edit,
// upload the APKs, point a track at the uploaded version codes, then
// validate and (unless dry-running) commit.
package play

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/matgreaves/shipworker/publish"
)

// Publisher is the slice of the publishing API the workflow drives.
// The production implementation is EditsPublisher; tests substitute a
// recording fake.
type Publisher interface {
	Insert(ctx context.Context, pkg string) (editID string, err error)
	UploadAPK(ctx context.Context, pkg, editID, path string) (versionCode int64, err error)
	UpdateTrack(ctx context.Context, pkg, editID string, update TrackUpdate) error
	Validate(ctx context.Context, pkg, editID string) error
	Commit(ctx context.Context, pkg, editID string) error
}

// TrackUpdate assigns uploaded version codes to a release track.
// UserFraction 0 means a full rollout.
type TrackUpdate struct {
	Track        string
	VersionCodes []int64
	UserFraction float64
}

// Push runs one edit per package name in the directive. Every edit is
// validated; commit is skipped on a dry run, which leaves the store
// untouched but still proves the upload would have been accepted.
func Push(ctx context.Context, p Publisher, d publish.Directive, apkPaths []string, log *slog.Logger) error {
	if d.Track == "" {
		return fmt.Errorf("publish directive has no track")
	}
	update := TrackUpdate{Track: d.Track}
	// A staged rollout only exists below 100 percent; at 100 (or with no
	// percentage at all) the release completes outright.
	if d.RolloutPercentage != nil && *d.RolloutPercentage < 100 {
		update.UserFraction = float64(*d.RolloutPercentage) / 100
	}

	for _, pkg := range d.PackageNames {
		if err := pushOne(ctx, p, pkg, update, d.DryRun, apkPaths, log.With("package", pkg)); err != nil {
			return fmt.Errorf("publish %s: %w", pkg, err)
		}
	}
	return nil
}

func pushOne(ctx context.Context, p Publisher, pkg string, update TrackUpdate, dryRun bool, apkPaths []string, log *slog.Logger) error {
	editID, err := p.Insert(ctx, pkg)
	if err != nil {
		return fmt.Errorf("insert edit: %w", err)
	}

	for _, path := range apkPaths {
		code, err := p.UploadAPK(ctx, pkg, editID, path)
		if err != nil {
			return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
		}
		log.Info("apk uploaded", "apk", filepath.Base(path), "version_code", code)
		update.VersionCodes = append(update.VersionCodes, code)
	}

	if err := p.UpdateTrack(ctx, pkg, editID, update); err != nil {
		return fmt.Errorf("update track %s: %w", update.Track, err)
	}
	if err := p.Validate(ctx, pkg, editID); err != nil {
		return fmt.Errorf("validate edit: %w", err)
	}

	if dryRun {
		log.Info("dry run, edit left uncommitted", "edit", editID, "track", update.Track)
		return nil
	}
	if err := p.Commit(ctx, pkg, editID); err != nil {
		return fmt.Errorf("commit edit: %w", err)
	}
	log.Info("edit committed", "edit", editID, "track", update.Track)
	return nil
}

// EditsPublisher publishes through the androidpublisher v3 API.
type EditsPublisher struct {
	svc *androidpublisher.Service
}

// NewEditsPublisher authenticates with service-account credentials JSON.
func NewEditsPublisher(ctx context.Context, credentialsJSON []byte) (*EditsPublisher, error) {
	svc, err := androidpublisher.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(androidpublisher.AndroidpublisherScope))
	if err != nil {
		return nil, fmt.Errorf("androidpublisher service: %w", err)
	}
	return &EditsPublisher{svc: svc}, nil
}

func (e *EditsPublisher) Insert(ctx context.Context, pkg string) (string, error) {
	edit, err := e.svc.Edits.Insert(pkg, &androidpublisher.AppEdit{}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return edit.Id, nil
}

func (e *EditsPublisher) UploadAPK(ctx context.Context, pkg, editID, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	apk, err := e.svc.Edits.Apks.Upload(pkg, editID).
		Media(f, googleapi.ContentType("application/vnd.android.package-archive")).
		Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return apk.VersionCode, nil
}

func (e *EditsPublisher) UpdateTrack(ctx context.Context, pkg, editID string, update TrackUpdate) error {
	release := &androidpublisher.TrackRelease{
		VersionCodes: update.VersionCodes,
		Status:       "completed",
	}
	if update.UserFraction > 0 {
		release.Status = "inProgress"
		release.UserFraction = update.UserFraction
	}
	track := &androidpublisher.Track{
		Track:    update.Track,
		Releases: []*androidpublisher.TrackRelease{release},
	}
	_, err := e.svc.Edits.Tracks.Update(pkg, editID, update.Track, track).Context(ctx).Do()
	return err
}

func (e *EditsPublisher) Validate(ctx context.Context, pkg, editID string) error {
	_, err := e.svc.Edits.Validate(pkg, editID).Context(ctx).Do()
	return err
}

func (e *EditsPublisher) Commit(ctx context.Context, pkg, editID string) error {
	_, err := e.svc.Edits.Commit(pkg, editID).Context(ctx).Do()
	return err
}
