// pushapk publishes the APKs a task points at to the Google Play store,
// on the track the task and the product configuration resolve to.
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

	"github.com/matgreaves/shipworker/internal/play"
	"github.com/matgreaves/shipworker/publish"
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
		configPath  string
		taskPath    string
		schemaPath  string
		appName     string
		artifactDir string
	)

	cmd := &cobra.Command{
		Use:          "pushapk --config product.yml --task task.json",
		Short:        "Publish task APKs to the Google Play store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			return run(cmd.Context(), configPath, taskPath, schemaPath, appName, artifactDir, log)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "product configuration document (YAML)")
	cmd.Flags().StringVar(&taskPath, "task", "", "task definition (JSON)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "task payload JSON schema (optional)")
	cmd.Flags().StringVar(&appName, "app", "", "app name granted by the worker's scope")
	cmd.Flags().StringVar(&artifactDir, "artifact-dir", "work", "directory holding upstream artifacts")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("task")
	return cmd
}

func run(ctx context.Context, configPath, taskPath, schemaPath, appName, artifactDir string, log *slog.Logger) error {
	cfgData, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	cfg, err := publish.Load(cfgData)
	if err != nil {
		return err
	}

	def, err := loadTask(taskPath, schemaPath)
	if err != nil {
		return err
	}

	directive, err := publish.Resolve(cfg, def.Payload, appName)
	if err != nil {
		return err
	}

	apks, err := upstreamPaths(def, artifactDir)
	if err != nil {
		return err
	}
	if len(apks) == 0 {
		return fmt.Errorf("task names no upstream APKs")
	}

	log.Info("publishing", "track", directive.Track, "dry_run", directive.DryRun,
		"packages", directive.PackageNames, "apks", len(apks))

	creds, err := os.ReadFile(directive.Secret)
	if err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	publisher, err := play.NewEditsPublisher(ctx, creds)
	if err != nil {
		return err
	}
	return play.Push(ctx, publisher, directive, apks, log)
}

func loadTask(taskPath, schemaPath string) (task.Definition, error) {
	data, err := os.ReadFile(taskPath)
	if err != nil {
		return task.Definition{}, err
	}
	if schemaPath != "" {
		if err := task.ValidateDefinition(schemaPath, data); err != nil {
			return task.Definition{}, err
		}
	}
	return task.Decode(data)
}

// upstreamPaths resolves every upstream artifact to its local path under
// <artifactDir>/<taskID>/<path>.
func upstreamPaths(def task.Definition, artifactDir string) ([]string, error) {
	var out []string
	for _, ua := range def.Payload.UpstreamArtifacts {
		id, err := task.ValidTaskID(ua.TaskID)
		if err != nil {
			return nil, err
		}
		for _, p := range ua.Paths {
			out = append(out, filepath.Join(artifactDir, id, filepath.FromSlash(p)))
		}
	}
	return out, nil
}
