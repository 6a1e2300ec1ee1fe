// addonsign submits a task's language packs to the add-on signing
// service and downloads the signed archives into the artifact directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matgreaves/shipworker/internal/amo"
	"github.com/matgreaves/shipworker/internal/xpi"
	"github.com/matgreaves/shipworker/task"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		taskPath    string
		schemaPath  string
		apiURL      string
		authFile    string
		app         string
		channel     string
		artifactDir string
	)

	cmd := &cobra.Command{
		Use:          "addonsign --task task.json --api https://addons.example",
		Short:        "Sign a task's language packs through the add-on service",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			return run(cmd.Context(), taskPath, schemaPath, apiURL, authFile, app, channel, artifactDir, log)
		},
	}

	cmd.Flags().StringVar(&taskPath, "task", "", "task definition (JSON)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "task payload JSON schema (optional)")
	cmd.Flags().StringVar(&apiURL, "api", "", "signing service base URL")
	cmd.Flags().StringVar(&authFile, "auth-file", "", "file holding the Authorization header value")
	cmd.Flags().StringVar(&app, "app", "firefox", "application the langpacks target")
	cmd.Flags().StringVar(&channel, "channel", "unlisted", "signing channel (listed or unlisted)")
	cmd.Flags().StringVar(&artifactDir, "artifact-dir", "work", "directory holding upstream artifacts and receiving signed output")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("api")
	cmd.MarkFlagRequired("auth-file")
	return cmd
}

func run(ctx context.Context, taskPath, schemaPath, apiURL, authFile, app, channel, artifactDir string, log *slog.Logger) error {
	data, err := os.ReadFile(taskPath)
	if err != nil {
		return err
	}
	if schemaPath != "" {
		if err := task.ValidateDefinition(schemaPath, data); err != nil {
			return err
		}
	}
	def, err := task.Decode(data)
	if err != nil {
		return err
	}

	packs, err := collectLangpacks(def, artifactDir)
	if err != nil {
		return err
	}
	if len(packs) == 0 {
		return fmt.Errorf("task names no language packs")
	}
	log.Info("signing langpacks", "count", len(packs), "channel", channel)

	auth, err := os.ReadFile(authFile)
	if err != nil {
		return fmt.Errorf("auth file: %w", err)
	}

	client := &amo.Client{
		BaseURL:       apiURL,
		Authorization: string(trimNewline(auth)),
	}
	return amo.SignAll(ctx, client, packs, app, channel, artifactDir, log)
}

// collectLangpacks reads langpack metadata from every upstream XPI,
// resolving each artifact path under <artifactDir>/<taskID>/<path>.
func collectLangpacks(def task.Definition, artifactDir string) ([]xpi.Info, error) {
	var packs []xpi.Info
	for _, ua := range def.Payload.UpstreamArtifacts {
		id, err := task.ValidTaskID(ua.TaskID)
		if err != nil {
			return nil, err
		}
		for _, p := range ua.Paths {
			if filepath.Ext(p) != ".xpi" {
				continue
			}
			info, err := xpi.LangpackInfo(filepath.Join(artifactDir, id, filepath.FromSlash(p)))
			if err != nil {
				return nil, err
			}
			packs = append(packs, info)
		}
	}
	return packs, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
