// beetmover moves build artifacts to release storage: nightly and
// candidate uploads driven by the task's artifact map or the manifest
// templates, and candidate-to-release promotion by server-side copy.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matgreaves/shipworker/internal/checksum"
	"github.com/matgreaves/shipworker/internal/mover"
	"github.com/matgreaves/shipworker/task"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	taskPath    string
	schemaPath  string
	action      string
	resource    string
	cloud       string
	region      string
	artifactDir string
	partners    []string
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "mover configuration document (YAML)")
	fs.StringVar(&o.taskPath, "task", "", "task definition (JSON)")
	fs.StringVar(&o.schemaPath, "schema", "", "task payload JSON schema (optional)")
	fs.StringVar(&o.action, "action", "", "worker action (push-to-nightly, push-to-candidates, push-to-releases, push-to-partner)")
	fs.StringVar(&o.resource, "resource", "", "bucket nickname from the configuration")
	fs.StringVar(&o.cloud, "cloud", string(mover.CloudAWS), "storage backend (aws or gcloud)")
	fs.StringVar(&o.region, "region", "us-west-2", "bucket region")
	fs.StringVar(&o.artifactDir, "artifact-dir", "work", "directory holding upstream artifacts")
	fs.StringSliceVar(&o.partners, "partner", nil, "partner repacks to promote (group/sub), push-to-releases only")
}

func newCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "beetmover --config config.yml --task task.json --action push-to-nightly --resource nightly",
		Short:        "Move build artifacts to release storage",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			return run(cmd.Context(), opts, log)
		},
	}

	opts.register(cmd.Flags())
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("action")
	cmd.MarkFlagRequired("resource")
	return cmd
}

func run(ctx context.Context, opts options, log *slog.Logger) error {
	cfg, err := mover.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	res, ok := cfg.Resources[opts.resource]
	if !ok {
		return fmt.Errorf("unknown resource %q", opts.resource)
	}

	data, err := os.ReadFile(opts.taskPath)
	if err != nil {
		return err
	}
	if opts.schemaPath != "" {
		if err := task.ValidateDefinition(opts.schemaPath, data); err != nil {
			return err
		}
	}
	def, err := task.Decode(data)
	if err != nil {
		return err
	}

	if task.IsReleaseAction(opts.action) {
		return promote(ctx, cfg, res, def, opts, log)
	}
	return upload(ctx, cfg, res, def, opts, log)
}

// promote copies a candidate build to its release prefixes. Promotion is
// a server-side copy, so it only runs against S3 resources.
func promote(ctx context.Context, cfg mover.Config, res mover.Resource, def task.Definition, opts options, log *slog.Logger) error {
	creds, err := cfg.Credentials(opts.resource, mover.Cloud(opts.cloud))
	if err != nil {
		return err
	}
	if creds.AWS == nil {
		return fmt.Errorf("resource %q has no %s credentials for promotion", opts.resource, opts.cloud)
	}

	p := def.Payload
	product := p.Product
	if product == "" && p.ReleaseProperties != nil {
		product = strings.ToLower(p.ReleaseProperties.AppName)
	}

	store := mover.NewS3Store(*creds.AWS, opts.region, res.Bucket)
	return mover.PromoteRelease(ctx, store, product, p.Version, p.BuildNumber, opts.partners, cfg.ReleaseExcludes, log)
}

// upload pushes the task's upstream artifacts, one concurrent flow per
// locale, then writes the checksums summary next to the artifacts.
func upload(ctx context.Context, cfg mover.Config, res mover.Resource, def task.Definition, opts options, log *slog.Logger) error {
	args, err := mover.TemplateArgs(def, opts.action)
	if err != nil {
		return err
	}

	items, err := stageItems(def, args, opts.action, opts.artifactDir)
	if err != nil {
		return err
	}

	up, err := newUploader(ctx, cfg, res, opts)
	if err != nil {
		return err
	}

	if opts.action == task.ActionPushToPartner {
		log.Info("partner push", "private", task.IsPartnerPrivateTask(opts.action, opts.resource))
	}
	log.Info("pushing artifacts", "action", opts.action, "resource", opts.resource,
		"bucket", res.Bucket, "locales", len(items))
	if err := mover.PushLocales(ctx, up, items, log); err != nil {
		return err
	}

	if prefix, err := cfg.URLPrefix(opts.resource); err == nil {
		for _, localeItems := range items {
			for _, item := range localeItems {
				log.Info("artifact available", "url", prefix+"/"+item.Key)
			}
		}
	}
	return writeChecksums(def, args, items, opts.artifactDir, log)
}

func newUploader(ctx context.Context, cfg mover.Config, res mover.Resource, opts options) (mover.Uploader, error) {
	creds, err := cfg.Credentials(opts.resource, mover.Cloud(opts.cloud))
	if err != nil {
		return nil, err
	}
	switch {
	case creds.AWS != nil:
		return mover.NewS3Uploader(*creds.AWS, opts.region, res.Bucket), nil
	case creds.GCloud != "":
		return mover.NewGCSUploader(ctx, creds.GCloud, res.Bucket)
	default:
		return nil, fmt.Errorf("resource %q is not replicated to %s", opts.resource, opts.cloud)
	}
}

// stageItems maps every upstream artifact to its destination keys. Tasks
// with an artifact map use it verbatim; older tasks fall back to the
// nightly/candidates manifest templates.
func stageItems(def task.Definition, args mover.Args, action, artifactDir string) (map[string][]mover.Item, error) {
	p := def.Payload
	items := map[string][]mover.Item{}

	if len(p.ArtifactMap) > 0 {
		for _, ua := range p.UpstreamArtifacts {
			id, err := task.ValidTaskID(ua.TaskID)
			if err != nil {
				return nil, err
			}
			locale := artifactLocale(ua, p)
			for _, path := range ua.Paths {
				pc, err := task.FileConfig(p.ArtifactMap, filepath.Base(path), id, locale)
				if err != nil {
					return nil, err
				}
				local := filepath.Join(artifactDir, id, filepath.FromSlash(path))
				for _, dest := range pc.Destinations {
					items[locale] = append(items[locale], mover.Item{Key: dest, Path: local})
				}
			}
		}
		return items, nil
	}

	filesByLocale, sources, err := localFiles(def, artifactDir)
	if err != nil {
		return nil, err
	}

	var manifest mover.Manifest
	if task.IsPromotionAction(action) {
		manifest, err = mover.CandidatesManifest(args, filesByLocale)
		if err != nil {
			return nil, err
		}
	} else {
		manifest = mover.NightlyManifest(args, filesByLocale)
	}

	for locale, byFile := range manifest.Mapping {
		for file, fm := range byFile {
			for _, dest := range fm.Destinations {
				items[locale] = append(items[locale], mover.Item{Key: dest, Path: sources[locale][file]})
			}
		}
	}
	return items, nil
}

// localFiles groups upstream artifact basenames by locale and records
// where each one lives on disk.
func localFiles(def task.Definition, artifactDir string) (map[string][]string, map[string]map[string]string, error) {
	p := def.Payload
	filesByLocale := map[string][]string{}
	sources := map[string]map[string]string{}

	for _, ua := range p.UpstreamArtifacts {
		id, err := task.ValidTaskID(ua.TaskID)
		if err != nil {
			return nil, nil, err
		}
		locale := artifactLocale(ua, p)
		if sources[locale] == nil {
			sources[locale] = map[string]string{}
		}
		for _, path := range ua.Paths {
			base := filepath.Base(path)
			filesByLocale[locale] = append(filesByLocale[locale], base)
			sources[locale][base] = filepath.Join(artifactDir, id, filepath.FromSlash(path))
		}
	}
	return filesByLocale, sources, nil
}

func artifactLocale(ua task.UpstreamArtifact, p task.Payload) string {
	if ua.Locale != "" {
		return ua.Locale
	}
	if p.Locale != "" {
		return p.Locale
	}
	return "en-US"
}

// writeChecksums digests every pushed file and writes the summary
// document into the artifact directory for downstream tasks.
func writeChecksums(def task.Definition, args mover.Args, items map[string][]mover.Item, artifactDir string, log *slog.Logger) error {
	alg := digest.SHA512
	if props := def.Payload.ReleaseProperties; props != nil && props.HashType != "" {
		alg = digest.Algorithm(props.HashType)
	}

	seen := map[string]bool{}
	var entries []checksum.Entry
	for _, localeItems := range items {
		for _, item := range localeItems {
			if seen[item.Path] {
				continue
			}
			seen[item.Path] = true

			d, err := checksum.FileDigest(item.Path, alg)
			if err != nil {
				return err
			}
			info, err := os.Stat(item.Path)
			if err != nil {
				return err
			}
			entries = append(entries, checksum.Entry{
				Name:   filepath.Base(item.Path),
				Size:   info.Size(),
				Digest: d,
			})
		}
	}

	name := checksum.SummaryName(strings.ToLower(args.Product), args.Version)
	dest := filepath.Join(artifactDir, "public", name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte(checksum.Manifest(entries)), 0o644); err != nil {
		return err
	}
	log.Info("checksums written", "path", dest, "entries", len(entries))
	return nil
}
