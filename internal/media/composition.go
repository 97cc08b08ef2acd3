package media

import "fmt"

// Segment maps a slice of a source asset onto the composition timeline.
type Segment struct {
	AssetPath string
	Source    TimeRange
	Target    TimeRange
}

// CompositionTrack is an ordered sequence of non-overlapping segments.
type CompositionTrack struct {
	Kind      TrackKind
	Transform Transform
	Segments  []Segment
}

// Insert appends a segment of the source asset at the given offset.
// Segments must arrive in non-decreasing start order and must not overlap
// an earlier segment on the composition timeline.
func (t *CompositionTrack) Insert(assetPath string, source TimeRange, at TimeValue) error {
	if source.Duration.Value < 0 {
		return fmt.Errorf("segment duration must not be negative")
	}
	if n := len(t.Segments); n > 0 {
		prevEnd := t.Segments[n-1].Target.End()
		if at.Cmp(prevEnd) < 0 {
			return fmt.Errorf("segment at %s overlaps previous segment ending at %s", at, prevEnd)
		}
	}
	t.Segments = append(t.Segments, Segment{
		AssetPath: assetPath,
		Source:    source,
		Target:    NewTimeRange(at, source.Duration),
	})
	return nil
}

// End returns the end of the last segment, or zero for an empty track.
func (t *CompositionTrack) End() TimeValue {
	if len(t.Segments) == 0 {
		return Zero
	}
	return t.Segments[len(t.Segments)-1].Target.End()
}

// Composition is an in-memory, not-yet-encoded aggregate of track segments:
// zero or one video track plus zero or more audio tracks.
type Composition struct {
	Video *CompositionTrack
	Audio []*CompositionTrack
}

// NewComposition returns an empty composition.
func NewComposition() *Composition {
	return &Composition{}
}

// AddVideoTrack creates the video track. It may be called once.
func (c *Composition) AddVideoTrack() *CompositionTrack {
	if c.Video == nil {
		c.Video = &CompositionTrack{Kind: TrackVideo, Transform: Identity}
	}
	return c.Video
}

// AddAudioTrack appends a new independent audio track.
func (c *Composition) AddAudioTrack() *CompositionTrack {
	tr := &CompositionTrack{Kind: TrackAudio, Transform: Identity}
	c.Audio = append(c.Audio, tr)
	return tr
}

// Duration is the end of the longest track.
func (c *Composition) Duration() TimeValue {
	end := Zero
	if c.Video != nil && c.Video.End().Cmp(end) > 0 {
		end = c.Video.End()
	}
	for _, tr := range c.Audio {
		if tr.End().Cmp(end) > 0 {
			end = tr.End()
		}
	}
	return end
}

// SourcePaths lists the distinct asset files referenced by the composition,
// video track first, in segment order.
func (c *Composition) SourcePaths() []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(tr *CompositionTrack) {
		if tr == nil {
			return
		}
		for _, seg := range tr.Segments {
			if !seen[seg.AssetPath] {
				seen[seg.AssetPath] = true
				paths = append(paths, seg.AssetPath)
			}
		}
	}
	add(c.Video)
	for _, tr := range c.Audio {
		add(tr)
	}
	return paths
}
