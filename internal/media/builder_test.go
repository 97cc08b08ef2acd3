package media

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoAsset(path string, seconds float64, withAudio bool) *Asset {
	dur := FromSeconds(seconds, DefaultTimescale)
	a := &Asset{
		Path:     path,
		Duration: dur,
		Tracks: []Track{
			{Kind: TrackVideo, Range: NewTimeRange(Zero, dur), Transform: Identity, NaturalWidth: 1920, NaturalHeight: 1080},
		},
	}
	if withAudio {
		a.Tracks = append(a.Tracks, Track{Kind: TrackAudio, Range: NewTimeRange(Zero, dur)})
	}
	return a
}

func audioAsset(path string, seconds float64) *Asset {
	dur := FromSeconds(seconds, DefaultTimescale)
	return &Asset{
		Path:     path,
		Duration: dur,
		Tracks:   []Track{{Kind: TrackAudio, Range: NewTimeRange(Zero, dur)}},
	}
}

func TestConcatenateLaysClipsBackToBack(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	a := videoAsset("a.mp4", 4, true)
	c := videoAsset("b.mp4", 6, true)

	comp := b.Concatenate([]*Asset{a, c}, false)

	require.NotNil(t, comp.Video)
	require.Len(t, comp.Video.Segments, 2)

	// Second clip starts exactly where the first ends.
	assert.InDelta(t, 0.0, comp.Video.Segments[0].Target.Start.Seconds(), 1e-9)
	assert.InDelta(t, 4.0, comp.Video.Segments[1].Target.Start.Seconds(), 1e-9)
	assert.InDelta(t, 10.0, comp.Duration().Seconds(), 1e-9)

	// No audio requested.
	assert.Empty(t, comp.Audio)
}

func TestConcatenateAppliesPortraitRotation(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	comp := b.Concatenate([]*Asset{videoAsset("a.mp4", 2, false)}, false)
	assert.True(t, comp.Video.Transform.Equal(Rotate90))
}

func TestConcatenateWithOriginalAudio(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	a := videoAsset("a.mp4", 3, true)
	c := videoAsset("b.mp4", 5, false) // silent clip
	d := videoAsset("c.mp4", 2, true)

	comp := b.Concatenate([]*Asset{a, c, d}, true)

	require.Len(t, comp.Audio, 1)
	audio := comp.Audio[0]

	// The silent clip contributes no audio segment, but the clips around it
	// keep their video-aligned offsets.
	require.Len(t, audio.Segments, 2)
	assert.InDelta(t, 0.0, audio.Segments[0].Target.Start.Seconds(), 1e-9)
	assert.InDelta(t, 8.0, audio.Segments[1].Target.Start.Seconds(), 1e-9)

	assert.InDelta(t, 10.0, comp.Duration().Seconds(), 1e-9)
}

func TestConcatenateSkipsAssetWithoutVideo(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	a := videoAsset("a.mp4", 4, false)
	bad := audioAsset("voice.m4a", 9)
	c := videoAsset("b.mp4", 6, false)

	comp := b.Concatenate([]*Asset{a, bad, c}, false)

	require.Len(t, comp.Video.Segments, 2)
	// The skipped asset does not advance the timeline.
	assert.InDelta(t, 4.0, comp.Video.Segments[1].Target.Start.Seconds(), 1e-9)
	assert.InDelta(t, 10.0, comp.Duration().Seconds(), 1e-9)
}

func TestMergeVoiceOverEndsAtVideoDuration(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	video := videoAsset("clip.mp4", 10, false)
	voice := audioAsset("take.m4a", 20) // longer than the video

	comp, err := b.MergeVideoWithVoiceOver(video, voice, false)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, comp.Duration().Seconds(), 1e-9)

	require.Len(t, comp.Audio, 1)
	assert.InDelta(t, 10.0, comp.Audio[0].End().Seconds(), 1e-9)
}

func TestMergeVoiceOverShortTakeKeepsVideoDuration(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	video := videoAsset("clip.mp4", 10, false)
	voice := audioAsset("take.m4a", 4)

	comp, err := b.MergeVideoWithVoiceOver(video, voice, false)
	require.NoError(t, err)

	// The voice track ends early; the composition still spans the video.
	assert.InDelta(t, 4.0, comp.Audio[0].End().Seconds(), 1e-9)
	assert.InDelta(t, 10.0, comp.Duration().Seconds(), 1e-9)
}

func TestMergeVoiceOverKeepsEmbeddedAudio(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	video := videoAsset("clip.mp4", 8, true)
	voice := audioAsset("take.m4a", 8)

	comp, err := b.MergeVideoWithVoiceOver(video, voice, false)
	require.NoError(t, err)

	// Voice-over plus the video's own audio as an independent track.
	require.Len(t, comp.Audio, 2)
	assert.Equal(t, "take.m4a", comp.Audio[0].Segments[0].AssetPath)
	assert.Equal(t, "clip.mp4", comp.Audio[1].Segments[0].AssetPath)
}

func TestMergeVoiceOverMirror(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	video := videoAsset("clip.mp4", 5, false)
	voice := audioAsset("take.m4a", 5)

	comp, err := b.MergeVideoWithVoiceOver(video, voice, true)
	require.NoError(t, err)

	assert.True(t, comp.Video.Transform.Equal(Mirror(1920)))
	assert.True(t, comp.Video.Transform.IsMirrored())
}

func TestMergeVoiceOverRejectsMissingTracks(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	_, err := b.MergeVideoWithVoiceOver(audioAsset("a.m4a", 5), audioAsset("b.m4a", 5), false)
	assert.ErrorIs(t, err, ErrNoVideoTrack)

	_, err = b.MergeVideoWithVoiceOver(videoAsset("a.mp4", 5, false), videoAsset("b.mp4", 5, false), false)
	assert.ErrorIs(t, err, ErrNoAudioTrack)
}

func TestTrackInsertRejectsOverlap(t *testing.T) {
	tr := &CompositionTrack{Kind: TrackVideo}
	require.NoError(t, tr.Insert("a.mp4", NewTimeRange(Zero, FromSeconds(4, 600)), Zero))

	err := tr.Insert("b.mp4", NewTimeRange(Zero, FromSeconds(2, 600)), FromSeconds(3, 600))
	assert.Error(t, err)
}

func TestSourcePathsVideoFirstDistinct(t *testing.T) {
	b := NewBuilder(zerolog.Nop())

	video := videoAsset("clip.mp4", 8, true)
	voice := audioAsset("take.m4a", 8)

	comp, err := b.MergeVideoWithVoiceOver(video, voice, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"clip.mp4", "take.m4a"}, comp.SourcePaths())
}
