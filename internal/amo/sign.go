package amo

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/matgreaves/shipworker/internal/xpi"
)

// With doubling backoff, ten polling attempts give the service around
// ten minutes to validate or sign.
const (
	callAttempts = 5
	pollAttempts = 10
)

// SignAll signs every langpack, one concurrent flow per locale, and
// drops each signed archive into
// <artifactDir>/public/build/<locale>/target.langpack.xpi.
//
// Application versions are registered up front: they are shared among
// locales, so registering once avoids racing conflict responses.
func SignAll(ctx context.Context, c *Client, packs []xpi.Info, app, channel, artifactDir string, log *slog.Logger) error {
	versions := map[string]bool{}
	for _, p := range packs {
		versions[p.MinVersion] = true
	}
	for v := range versions {
		err := Retry(ctx, callAttempts, "add app version", func(ctx context.Context) error {
			return c.AddAppVersion(ctx, app, v)
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range packs {
		g.Go(func() error {
			return signOne(ctx, c, p, channel, artifactDir, log)
		})
	}
	return g.Wait()
}

// signOne uploads one langpack, waits for validation, creates the
// version, polls for the signed build, and downloads it.
func signOne(ctx context.Context, c *Client, pack xpi.Info, channel, artifactDir string, log *slog.Logger) error {
	log = log.With("locale", pack.Locale, "version", pack.Version)

	var up Upload
	err := Retry(ctx, callAttempts, "upload xpi", func(ctx context.Context) error {
		var err error
		up, err = c.UploadXPI(ctx, pack.Path, channel)
		return err
	})
	if err != nil {
		return err
	}

	err = Retry(ctx, pollAttempts, "validate upload", func(ctx context.Context) error {
		return c.CheckUpload(ctx, up.UUID)
	})
	if err != nil {
		return err
	}

	err = Retry(ctx, callAttempts, "create version", func(ctx context.Context) error {
		_, err := c.CreateVersion(ctx, pack.ID, up.UUID)
		return err
	})
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		// The version exists from an earlier run; signing proceeds on it.
		log.Info("version already exists, polling for signed build")
	} else if err != nil {
		return err
	}

	var info SignedInfo
	err = Retry(ctx, pollAttempts, "poll signed info", func(ctx context.Context) error {
		var err error
		info, err = c.SignedAddonInfo(ctx, pack.ID, pack.Version)
		return err
	})
	if err != nil {
		return err
	}

	dest := filepath.Join(artifactDir, "public", "build", pack.Locale, "target.langpack.xpi")
	err = Retry(ctx, callAttempts, "download signed xpi", func(ctx context.Context) error {
		return c.DownloadSignedXPI(ctx, info, dest)
	})
	if err != nil {
		return err
	}

	log.Info("signed langpack written", "dest", dest)
	return nil
}
