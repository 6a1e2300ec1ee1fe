package publish

import "fmt"

// ShapeError reports a static publish configuration that does not match
// a recognized shape, or a requested app/channel that is absent from it.
type ShapeError struct {
	App    string
	Detail string
}

func (e *ShapeError) Error() string {
	if e.App != "" {
		return fmt.Sprintf("publish config shape: app %q: %s", e.App, e.Detail)
	}
	return fmt.Sprintf("publish config shape: %s", e.Detail)
}

// TrackError reports that no applicable track could be resolved where
// one is required.
type TrackError struct {
	App string
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("no track resolved for app %q: no track override, channel, or default track", e.App)
}

// TargetError reports an unrecognized store or cloud identifier.
type TargetError struct {
	Target string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("unsupported publish target %q", e.Target)
}
