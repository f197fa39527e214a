// Package project defines the Project data model consumed by the timeline
// compiler: tracks, clips, groups, and the layout that maps group members
// to canvas viewports. Values arrive from the host as JSON and are
// validated once at the boundary; everything downstream treats a Project
// as an immutable snapshot.
package project

import "fmt"

// Scaled100 is an integer parameter scaled by 100 on the wire (50 == 0.5,
// 100 == 1.0), per the serialization convention described in spec.md §6.
// The core divides by 100 exactly once, at this type's Value method.
type Scaled100 int64

// Value returns the parameter as its normalized float64 ratio or seconds
// value.
func (s Scaled100) Value() float64 {
	return float64(s) / 100
}

// SourceKind discriminates a Clip's media source.
type SourceKind string

// Supported clip source kinds. Closed set: unknown values are rejected by
// Validate.
const (
	SourceStem  SourceKind = "stem"
	SourceLocal SourceKind = "local"
)

// Source identifies where a Clip's bytes come from: a content-addressed
// stem reference, or a local blob the host already holds in memory.
type Source struct {
	Kind SourceKind `json:"kind"`
	Ref  string     `json:"ref,omitempty"` // stem URI, when Kind == SourceStem
	Blob []byte     `json:"-"`             // local bytes, when Kind == SourceLocal
}

// Clip is a single placement of a source on a Track.
type Clip struct {
	ID            string     `json:"id"`
	Source        Source     `json:"source"`
	OffsetMs      int64      `json:"offset_ms"`
	SourceOffsetMs int64     `json:"sourceOffset_ms"`
	DurationMs    int64      `json:"duration_ms"`
	Speed         Scaled100  `json:"speed"`
}

// speedOrDefault returns Clip.Speed, defaulting to 1.0 (100) when unset,
// per spec.md's default speed = 1.
func (c Clip) speedOrDefault() Scaled100 {
	if c.Speed == 0 {
		return 100
	}
	return c.Speed
}

// SpeedValue returns the clip's playback speed ratio, defaulting to 1.0
// when unset.
func (c Clip) SpeedValue() float64 {
	return c.speedOrDefault().Value()
}

// AudioEffectKind discriminates an AudioEffect.
type AudioEffectKind string

// Supported audio effect kinds. "custom" passes Params through opaquely;
// gain/pan are interpreted directly by the track audio pipeline.
const (
	EffectGain   AudioEffectKind = "gain"
	EffectPan    AudioEffectKind = "pan"
	EffectCustom AudioEffectKind = "custom"
)

// AudioEffect is one stage of a Track's audio pipeline.
type AudioEffect struct {
	Kind   AudioEffectKind `json:"kind"`
	Value  Scaled100       `json:"value"`
	Params map[string]any  `json:"params,omitempty"` // opaque, kind == custom only
}

// Track holds an ordered, non-overlapping-by-convention list of clips and
// a track-level audio pipeline (gain/pan stages applied in order).
type Track struct {
	ID            string        `json:"id"`
	Clips         []Clip        `json:"clips"`
	AudioPipeline []AudioEffect `json:"audioPipeline,omitempty"`
}

// LayoutKind discriminates a Group's layout rule.
type LayoutKind string

// Supported layout kinds. Closed set: unknown values are rejected by
// Validate.
const (
	LayoutGrid     LayoutKind = "grid"
	LayoutAbsolute LayoutKind = "absolute"
	LayoutStacked  LayoutKind = "stacked"
)

// Layout is the layout rule for a Group's members.
type Layout struct {
	Kind LayoutKind `json:"kind"`

	// grid
	Cols int       `json:"cols,omitempty"`
	Rows int       `json:"rows,omitempty"`
	Gap  Scaled100 `json:"gap,omitempty"`  // ratio in [0,1]
	Pad  Scaled100 `json:"padding,omitempty"` // ratio in [0,1]
}

// Member is a reference to a Track or nested Group by id, or a void
// placeholder that occupies and skips a layout slot. For absolute layout,
// X/Y/W/H are the member's own viewport ratios.
type Member struct {
	ID   string    `json:"id,omitempty"` // empty => void
	Void bool      `json:"void,omitempty"`
	X    Scaled100 `json:"x,omitempty"`
	Y    Scaled100 `json:"y,omitempty"`
	W    Scaled100 `json:"w,omitempty"`
	H    Scaled100 `json:"h,omitempty"`
}

// IsVoid reports whether this Member is a layout hole.
func (m Member) IsVoid() bool {
	return m.Void || m.ID == ""
}

// Group is a layout container with an ordered set of Members.
type Group struct {
	ID      string   `json:"id"`
	Layout  Layout   `json:"layout"`
	Members []Member `json:"members"`
}

// Canvas is the output framebuffer dimensions in pixels.
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Project is the read-only input to the TimelineCompiler.
type Project struct {
	Title      string  `json:"title"`
	Canvas     Canvas  `json:"canvas"`
	Tracks     []Track `json:"tracks"`
	Groups     []Group `json:"groups"`
	RootGroup  string  `json:"rootGroup,omitempty"`
}

// TrackByID returns the Track with the given id, or false if absent.
func (p Project) TrackByID(id string) (Track, bool) {
	for _, t := range p.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// GroupByID returns the Group with the given id, or false if absent.
func (p Project) GroupByID(id string) (Group, bool) {
	for _, g := range p.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// Root resolves the root group: the explicit RootGroup id if set, else the
// first declared group. Returns false if the project has no groups.
func (p Project) Root() (Group, bool) {
	if p.RootGroup != "" {
		return p.GroupByID(p.RootGroup)
	}
	if len(p.Groups) == 0 {
		return Group{}, false
	}
	return p.Groups[0], true
}

// SourceConsumed returns the duration of source media consumed by this
// clip: duration_ms/1000 * speed, per spec.md §9's resolved Open Question
// (duration is timeline duration; source consumption scales with speed).
func (c Clip) SourceConsumed() float64 {
	return float64(c.DurationMs) / 1000 * c.speedOrDefault().Value()
}

// Validate checks the structural invariants spec.md §3 requires: member
// ids resolve to known tracks, duration/speed are non-negative, and
// layout/effect discriminators are one of the closed set of known kinds.
// Unknown "custom" effect params are passed through, not rejected.
// Overlapping clips within a track are permitted (see DESIGN.md Open
// Question #2); Validate does not reject them.
func Validate(p Project) error {
	for _, g := range p.Groups {
		switch g.Layout.Kind {
		case LayoutGrid, LayoutAbsolute, LayoutStacked, "":
		default:
			return fmt.Errorf("project: group %q: unknown layout kind %q", g.ID, g.Layout.Kind)
		}
		for _, m := range g.Members {
			if m.IsVoid() {
				continue
			}
			if _, ok := p.TrackByID(m.ID); ok {
				continue
			}
			if _, ok := p.GroupByID(m.ID); ok {
				continue
			}
			return fmt.Errorf("project: group %q: member %q resolves to no known track or group", g.ID, m.ID)
		}
	}

	for _, t := range p.Tracks {
		for _, c := range t.Clips {
			if c.DurationMs < 0 {
				return fmt.Errorf("project: clip %q: negative duration", c.ID)
			}
			if c.Speed != 0 && c.Speed < 0 {
				return fmt.Errorf("project: clip %q: non-positive speed", c.ID)
			}
			switch c.Source.Kind {
			case SourceStem, SourceLocal:
			default:
				return fmt.Errorf("project: clip %q: unknown source kind %q", c.ID, c.Source.Kind)
			}
		}
		for _, e := range t.AudioPipeline {
			switch e.Kind {
			case EffectGain, EffectPan, EffectCustom:
			default:
				return fmt.Errorf("project: track %q: unknown audio effect kind %q", t.ID, e.Kind)
			}
		}
	}

	return nil
}
