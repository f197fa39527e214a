// Package timeline compiles a project.Project into a flat, time-indexed
// segment list with per-clip viewports. Compile is a pure function: given
// the same project and canvas it always produces the same Timeline, and
// malformed input yields an empty Timeline rather than an error.
package timeline

import (
	"sort"

	"github.com/zsiec/weave/project"
)

// Viewport is an axis-aligned rectangle on the canvas in pixels.
type Viewport struct {
	X, Y, W, H int
}

// Placement is a clip's contribution to a segment: its viewport, source
// window, and speed.
type Placement struct {
	ClipID  string
	TrackID string
	View    Viewport
	In      float64 // source seconds at segment start
	Out     float64 // source seconds at segment end
	Speed   float64
}

// LayoutSegment is a half-open time interval [Start, End) during which the
// set of active placements is constant.
type LayoutSegment struct {
	Start, End float64
	Placements []Placement
}

// Timeline is the compiled, flat representation of a Project's temporal
// and spatial layout.
type Timeline struct {
	Duration float64
	Segments []LayoutSegment
}

// clipInfo is the per-clip intermediate computed in step 4 of Compile.
type clipInfo struct {
	clipID        string
	trackID       string
	view          Viewport
	timelineStart float64
	timelineEnd   float64
	in            float64
	out           float64
	speed         float64
}

// Compile resolves the root group, computes each member's viewport, and
// flattens every track's clips into a sorted, contiguous, non-overlapping
// segment list. It never fails: a project with no groups, no tracks, or
// dangling references yields a Timeline with zero duration and no
// segments.
func Compile(p project.Project, canvas project.Canvas) Timeline {
	root, ok := p.Root()
	if !ok {
		return Timeline{}
	}

	viewports := resolveViewports(p, root, canvas)

	var clips []clipInfo
	for _, track := range p.Tracks {
		view, ok := viewports[track.ID]
		if !ok {
			continue
		}
		trackID := track.ID
		for _, c := range track.Clips {
			speed := c.SpeedValue()
			timelineStart := float64(c.OffsetMs) / 1000
			timelineEnd := float64(c.OffsetMs+c.DurationMs) / 1000
			in := float64(c.SourceOffsetMs) / 1000
			clips = append(clips, clipInfo{
				clipID:        c.ID,
				trackID:       trackID,
				view:          view,
				timelineStart: timelineStart,
				timelineEnd:   timelineEnd,
				in:            in,
				out:           in + c.SourceConsumed(),
				speed:         speed,
			})
		}
	}

	return buildSegments(clips)
}

// resolveViewports maps each non-void member of the root group to its
// computed Viewport, per the layout rule in spec.md §4.1 step 3.
func resolveViewports(p project.Project, root project.Group, canvas project.Canvas) map[string]Viewport {
	out := make(map[string]Viewport)

	switch root.Layout.Kind {
	case project.LayoutGrid:
		cols := root.Layout.Cols
		rows := root.Layout.Rows
		if cols <= 0 {
			cols = 1
		}
		if rows <= 0 {
			rows = 1
		}
		gap := root.Layout.Gap.Value()
		pad := root.Layout.Pad.Value()

		availW := float64(canvas.Width) * (1 - 2*pad)
		availH := float64(canvas.Height) * (1 - 2*pad)
		cellW := (availW - gap*float64(cols-1)) / float64(cols)
		cellH := (availH - gap*float64(rows-1)) / float64(rows)
		originX := float64(canvas.Width) * pad
		originY := float64(canvas.Height) * pad

		for i, m := range root.Members {
			if m.IsVoid() {
				continue
			}
			col := i % cols
			row := i / cols
			x := originX + float64(col)*(cellW+gap)
			y := originY + float64(row)*(cellH+gap)
			out[m.ID] = Viewport{
				X: round(x),
				Y: round(y),
				W: round(cellW),
				H: round(cellH),
			}
		}

	case project.LayoutAbsolute:
		for _, m := range root.Members {
			if m.IsVoid() {
				continue
			}
			out[m.ID] = Viewport{
				X: round(m.X.Value() * float64(canvas.Width)),
				Y: round(m.Y.Value() * float64(canvas.Height)),
				W: round(m.W.Value() * float64(canvas.Width)),
				H: round(m.H.Value() * float64(canvas.Height)),
			}
		}

	default: // stacked, or no layout
		full := Viewport{X: 0, Y: 0, W: canvas.Width, H: canvas.Height}
		for _, m := range root.Members {
			if m.IsVoid() {
				continue
			}
			out[m.ID] = full
		}
	}

	return out
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

// buildSegments collects the sorted set of transition times, always
// including 0, and emits a LayoutSegment for each consecutive pair whose
// interval overlaps at least one clip. Segments with no placements are
// omitted, per spec.md §4.1 step 5.
func buildSegments(clips []clipInfo) Timeline {
	if len(clips) == 0 {
		return Timeline{}
	}

	boundary := map[float64]struct{}{0: {}}
	var duration float64
	for _, c := range clips {
		boundary[c.timelineStart] = struct{}{}
		boundary[c.timelineEnd] = struct{}{}
		if c.timelineEnd > duration {
			duration = c.timelineEnd
		}
	}

	times := make([]float64, 0, len(boundary))
	for t := range boundary {
		times = append(times, t)
	}
	sort.Float64s(times)

	var segments []LayoutSegment
	for i := 0; i+1 < len(times); i++ {
		a, b := times[i], times[i+1]
		if a >= b {
			continue
		}

		var placements []Placement
		for _, c := range clips {
			if c.timelineStart < b && c.timelineEnd > a {
				placements = append(placements, Placement{
					ClipID:  c.clipID,
					TrackID: c.trackID,
					View:    c.view,
					In:      c.in + (a-c.timelineStart)*c.speed,
					Out:     c.in + (b-c.timelineStart)*c.speed,
					Speed:   c.speed,
				})
			}
		}
		if len(placements) == 0 {
			continue
		}

		segments = append(segments, LayoutSegment{Start: a, End: b, Placements: placements})
	}

	return Timeline{Duration: duration, Segments: segments}
}
