package mover

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// Item is one file staged for upload.
type Item struct {
	// Key is the destination object key.
	Key string

	// Path is the local file holding the content.
	Path string
}

const (
	uploadAttempts = 3
	uploadBackoff  = time.Second
)

// PushLocales uploads each locale's items concurrently, one flow per
// locale, so fan-out is bounded by the task's locale count. Uploads are
// retried on failure; destination resolution never is, because its
// failures mean the task itself is malformed. The first error cancels
// the remaining flows.
func PushLocales(ctx context.Context, up Uploader, itemsByLocale map[string][]Item, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	for locale, items := range itemsByLocale {
		g.Go(func() error {
			for _, item := range items {
				log.Info("uploading", "locale", locale, "key", item.Key)
				if err := uploadWithRetry(ctx, up, item); err != nil {
					log.Error("upload failed", "locale", locale, "key", item.Key, "error", err)
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// uploadWithRetry re-reads the source file on every attempt so a partial
// upload never resumes from a drained reader. Backoff doubles between
// attempts.
func uploadWithRetry(ctx context.Context, up Uploader, item Item) error {
	backoff := uploadBackoff
	var lastErr error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		f, err := os.Open(item.Path)
		if err != nil {
			// Missing source files are a task defect, not a transient
			// upload failure.
			return err
		}
		err = up.Upload(ctx, item.Key, ContentType(item.Key), f)
		f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}
