package media

import (
	"errors"

	"github.com/rs/zerolog"
)

var (
	// ErrNoVideoTrack is returned when a merge source carries no video.
	ErrNoVideoTrack = errors.New("asset has no video track")
	// ErrNoAudioTrack is returned when a voice-over source carries no audio.
	ErrNoAudioTrack = errors.New("asset has no audio track")
)

// Builder assembles source assets into compositions. It performs no I/O;
// assets are pre-loaded metadata handles.
type Builder struct {
	log zerolog.Logger
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log}
}

// Concatenate lays the video tracks of the given assets back-to-back in
// input order. When withOriginalAudio is set, each asset's audio track is
// laid out at the same offset; an asset without audio contributes silence
// for its range. An asset without a video track is logged and skipped and
// never aborts the merge. The result carries the portrait rotation.
func (b *Builder) Concatenate(assets []*Asset, withOriginalAudio bool) *Composition {
	comp := NewComposition()
	video := comp.AddVideoTrack()
	video.Transform = Rotate90

	var audio *CompositionTrack
	if withOriginalAudio {
		audio = comp.AddAudioTrack()
	}

	offset := Zero
	for _, asset := range assets {
		if _, ok := asset.Track(TrackVideo); !ok {
			b.log.Warn().Str("asset", asset.Path).Msg("skipping clip without a video track")
			continue
		}

		source := NewTimeRange(Zero, asset.Duration)
		if err := video.Insert(asset.Path, source, offset); err != nil {
			b.log.Warn().Err(err).Str("asset", asset.Path).Msg("skipping clip")
			continue
		}

		if audio != nil {
			if _, ok := asset.Track(TrackAudio); ok {
				if err := audio.Insert(asset.Path, source, offset); err != nil {
					b.log.Warn().Err(err).Str("asset", asset.Path).Msg("dropping clip audio")
				}
			}
		}

		offset = offset.Add(asset.Duration)
	}

	return comp
}

// MergeVideoWithVoiceOver lays the video at time zero for its native track
// duration and aligns the voice-over to the video's duration, not the
// audio's, even when the audio runs longer. Embedded audio in the video, if
// any, is preserved as an independent third track at the same alignment.
// The video's native transform is preserved unless mirror is set, in which
// case the horizontal flip for the video's natural width is applied.
func (b *Builder) MergeVideoWithVoiceOver(video, voice *Asset, mirror bool) (*Composition, error) {
	vt, ok := video.Track(TrackVideo)
	if !ok {
		return nil, ErrNoVideoTrack
	}
	at, ok := voice.Track(TrackAudio)
	if !ok {
		return nil, ErrNoAudioTrack
	}

	comp := NewComposition()
	videoDur := vt.Range.Duration

	ct := comp.AddVideoTrack()
	ct.Transform = vt.Transform
	if mirror {
		ct.Transform = Mirror(vt.NaturalWidth)
	}
	if err := ct.Insert(video.Path, NewTimeRange(Zero, videoDur), Zero); err != nil {
		return nil, err
	}

	// The voice-over cannot contribute more than it holds; the composition
	// still ends at the video's duration because the video track spans it.
	voiceDur := videoDur
	if at.Range.Duration.Cmp(videoDur) < 0 {
		voiceDur = at.Range.Duration
	}
	voiceTrack := comp.AddAudioTrack()
	if err := voiceTrack.Insert(voice.Path, NewTimeRange(Zero, voiceDur), Zero); err != nil {
		return nil, err
	}

	if _, ok := video.Track(TrackAudio); ok {
		embedded := comp.AddAudioTrack()
		if err := embedded.Insert(video.Path, NewTimeRange(Zero, videoDur), Zero); err != nil {
			return nil, err
		}
	}

	return comp, nil
}
