package mover

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matgreaves/shipworker/task"
)

// filenamePlatforms normalizes stage platform names to the platform
// token embedded in artifact filenames.
var filenamePlatforms = map[string]string{
	"android-api-15":        "android-arm",
	"android-api-15-old-id": "android-arm",
	"android-api-16":        "android-arm",
	"android-api-16-old-id": "android-arm",
	"android-x86":           "android-i386",
	"android-x86-old-id":    "android-i386",
	"android-aarch64":       "android-aarch64",
}

// Args are the values substituted into upload manifests: everything the
// destination templates need, derived once from the task.
type Args struct {
	Product          string
	Version          string
	Branch           string
	BuildID          string
	Platform         string
	StagePlatform    string
	FilenamePlatform string
	TemplateKey      string
	UploadDate       string

	// BuildNumber is set only for candidate promotion tasks.
	BuildNumber int

	Locales  []string
	Partials map[string]task.Partial
}

// TemplateArgs derives manifest template arguments from a task. action
// selects between the nightly and candidates template families; for
// promotion actions the payload's version and build_number override the
// release properties.
func TemplateArgs(def task.Definition, action string) (Args, error) {
	p := def.Payload
	props := p.ReleaseProperties
	if props == nil {
		return Args{}, fmt.Errorf("template args: payload has no releaseProperties")
	}

	locales := task.Locales(p)
	if err := task.CheckLocaleConsistency(p.Locale, locales); err != nil {
		return Args{}, err
	}

	product := strings.ToLower(props.AppName)
	stagePlatform := props.StagePlatform
	if stagePlatform == "" {
		stagePlatform = props.Platform
	}

	args := Args{
		Product:          props.AppName,
		Version:          props.AppVersion,
		Branch:           props.Branch,
		BuildID:          props.BuildID,
		Platform:         props.Platform,
		StagePlatform:    stagePlatform,
		FilenamePlatform: filenamePlatform(stagePlatform),
		UploadDate:       formatUploadDate(p.UploadDate),
		TemplateKey:      product + "_nightly",
		Locales:          locales,
		Partials:         task.PartialsProps(p),
	}

	if task.IsPromotionAction(action) || task.IsReleaseAction(action) {
		args.TemplateKey = product + "_candidates"
		if p.Version != "" {
			args.Version = p.Version
		}
		args.BuildNumber = p.BuildNumber
	}

	return args, nil
}

func filenamePlatform(stagePlatform string) string {
	if fp, ok := filenamePlatforms[stagePlatform]; ok {
		return fp
	}
	return stagePlatform
}

// formatUploadDate renders an epoch upload date as the dated directory
// layout (YYYY/MM/YYYY-MM-DD-HH-MM-SS). Values that are not epoch
// seconds are assumed to be pre-rendered and pass through unchanged.
func formatUploadDate(v string) string {
	if v == "" {
		return ""
	}
	epoch, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	return time.Unix(int64(epoch), 0).UTC().Format("2006/01/2006-01-02-15-04-05")
}
