package timeline

import "sort"

// SegmentAt returns the segment containing t (half-open [Start, End)) via
// binary search, or false if t falls outside every segment.
func (tl Timeline) SegmentAt(t float64) (LayoutSegment, bool) {
	segs := tl.Segments
	i := sort.Search(len(segs), func(i int) bool { return segs[i].End > t })
	if i == len(segs) || segs[i].Start > t {
		return LayoutSegment{}, false
	}
	return segs[i], true
}

// ActivePlacement pairs a Placement with the local (source) time it should
// display at the query time.
type ActivePlacement struct {
	Placement Placement
	LocalTime float64
}

// ActivePlacements returns every placement active at t, annotated with the
// source-local time to decode: In + (t - segment.Start) * speed.
func (tl Timeline) ActivePlacements(t float64) []ActivePlacement {
	seg, ok := tl.SegmentAt(t)
	if !ok {
		return nil
	}

	out := make([]ActivePlacement, 0, len(seg.Placements))
	for _, pl := range seg.Placements {
		out = append(out, ActivePlacement{
			Placement: pl,
			LocalTime: pl.In + (t-seg.Start)*pl.Speed,
		})
	}
	return out
}

// PlacementsInRange returns every placement active at any point in [a, b),
// deduplicated by clip id and preserving first-seen order.
func (tl Timeline) PlacementsInRange(a, b float64) []Placement {
	seen := make(map[string]bool)
	var out []Placement

	segs := tl.Segments
	start := sort.Search(len(segs), func(i int) bool { return segs[i].End > a })

	for i := start; i < len(segs) && segs[i].Start < b; i++ {
		for _, pl := range segs[i].Placements {
			if seen[pl.ClipID] {
				continue
			}
			seen[pl.ClipID] = true
			out = append(out, pl)
		}
	}
	return out
}

// Transition describes a segment boundary: the placements starting and
// ending at that time.
type Transition struct {
	At      float64
	Starts  []Placement
	Ends    []Placement
}

// NextTransition returns the earliest segment boundary strictly greater
// than t, annotated with which placements start or end there. Returns
// false if there is no later boundary.
func (tl Timeline) NextTransition(t float64) (Transition, bool) {
	segs := tl.Segments
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Start > t })

	// A segment ending after t with no segment starting at its end (a gap
	// or the end of the timeline) makes that end the next boundary.
	if i > 0 && segs[i-1].End > t && (i == len(segs) || segs[i-1].End < segs[i].Start) {
		return Transition{At: segs[i-1].End, Ends: segs[i-1].Placements}, true
	}
	if i == len(segs) {
		return Transition{}, false
	}

	at := segs[i].Start
	tr := Transition{At: at}
	contiguous := i > 0 && segs[i-1].End == at

	for _, pl := range segs[i].Placements {
		startsHere := true
		if contiguous {
			for _, prev := range segs[i-1].Placements {
				if prev.ClipID == pl.ClipID {
					startsHere = false
					break
				}
			}
		}
		if startsHere {
			tr.Starts = append(tr.Starts, pl)
		}
	}

	if contiguous {
		for _, prev := range segs[i-1].Placements {
			stillActive := false
			for _, pl := range segs[i].Placements {
				if pl.ClipID == prev.ClipID {
					stillActive = true
					break
				}
			}
			if !stillActive {
				tr.Ends = append(tr.Ends, prev)
			}
		}
	}

	return tr, true
}
