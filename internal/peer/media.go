package peer

import (
	"fmt"

	webrtc "github.com/pion/webrtc/v3"
)

// MediaSource supplies the local tracks attached to every new transport.
// Acquiring the source is the first negotiation step, before any transport
// exists.
type MediaSource interface {
	Tracks() []webrtc.TrackLocal
	Close() error
}

// NullSource is a media source with no tracks. A headless participant can
// still complete the full negotiation and hold a data-only connection.
type NullSource struct{}

func (NullSource) Tracks() []webrtc.TrackLocal { return nil }
func (NullSource) Close() error                { return nil }

// SampleSource announces audio and video tracks without producing frames.
// It makes the offered session description look like a real call, which is
// what a browser peer on the other side expects.
type SampleSource struct {
	tracks []webrtc.TrackLocal
}

func NewSampleSource(streamID string) (*SampleSource, error) {
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("create audio track: %w", err)
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("create video track: %w", err)
	}

	return &SampleSource{tracks: []webrtc.TrackLocal{audio, video}}, nil
}

func (s *SampleSource) Tracks() []webrtc.TrackLocal { return s.tracks }
func (s *SampleSource) Close() error                { return nil }
