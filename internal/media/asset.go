package media

// TrackKind identifies the typed timeline within an asset or composition.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is a single typed timeline within an asset.
type Track struct {
	Kind          TrackKind
	Range         TimeRange
	Transform     Transform
	NaturalWidth  float64
	NaturalHeight float64
}

// Asset is an immutable handle to a decodable media resource at rest.
// Multiple assets may reference the same file read-only.
type Asset struct {
	Path     string
	Duration TimeValue
	Tracks   []Track
}

// Track returns the first track of the given kind.
func (a *Asset) Track(kind TrackKind) (*Track, bool) {
	for i := range a.Tracks {
		if a.Tracks[i].Kind == kind {
			return &a.Tracks[i], true
		}
	}
	return nil, false
}

// HasAudio reports whether the asset carries an audio track.
func (a *Asset) HasAudio() bool {
	_, ok := a.Track(TrackAudio)
	return ok
}
