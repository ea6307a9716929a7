package peer

import (
	"encoding/json"
	"fmt"

	webrtc "github.com/pion/webrtc/v3"
)

// Transport hides the connection engine behind the negotiation session, so
// the session logic can be exercised without opening real media ports.
type Transport interface {
	// CreateOffer produces a local description and returns it ready for the
	// wire.
	CreateOffer() (json.RawMessage, error)
	// CreateAnswer applies the remote offer and produces the answering
	// description.
	CreateAnswer(offer json.RawMessage) (json.RawMessage, error)
	// AcceptAnswer applies the remote answer to a previously offered
	// connection.
	AcceptAnswer(answer json.RawMessage) error
	// AddICECandidate feeds one remote connectivity candidate in arrival
	// order.
	AddICECandidate(candidate json.RawMessage) error
	Close() error
}

// TransportCallbacks carry transport-originated events back into the session.
type TransportCallbacks struct {
	// OnICECandidate fires for each locally gathered candidate.
	OnICECandidate func(candidate json.RawMessage)
	// OnConnected fires once the connectivity checks succeed.
	OnConnected func()
	// OnClosed fires when the connection fails or is torn down remotely.
	OnClosed func()
}

// TransportFactory builds a fresh transport for one negotiation attempt.
type TransportFactory func(cb TransportCallbacks) (Transport, error)

type pionTransport struct {
	pc *webrtc.PeerConnection
}

// NewPionFactory returns a TransportFactory backed by a real peer connection.
// Each call to the factory builds a new connection carrying the media
// source's tracks.
func NewPionFactory(iceServers []webrtc.ICEServer, media MediaSource) TransportFactory {
	return func(cb TransportCallbacks) (Transport, error) {
		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers: iceServers,
		})
		if err != nil {
			return nil, fmt.Errorf("create peer connection: %w", err)
		}

		for _, track := range media.Tracks() {
			if _, err := pc.AddTrack(track); err != nil {
				pc.Close()
				return nil, fmt.Errorf("add track: %w", err)
			}
		}

		pc.OnICECandidate(func(c *webrtc.ICECandidate) {
			if c == nil || cb.OnICECandidate == nil {
				return
			}
			raw, err := json.Marshal(c.ToJSON())
			if err != nil {
				return
			}
			cb.OnICECandidate(raw)
		})

		pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
			switch state {
			case webrtc.ICEConnectionStateConnected:
				if cb.OnConnected != nil {
					cb.OnConnected()
				}
			case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
				if cb.OnClosed != nil {
					cb.OnClosed()
				}
			}
		})

		return &pionTransport{pc: pc}, nil
	}
}

func (t *pionTransport) CreateOffer() (json.RawMessage, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(t.pc.LocalDescription())
}

func (t *pionTransport) CreateAnswer(offer json.RawMessage) (json.RawMessage, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(offer, &desc); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(t.pc.LocalDescription())
}

func (t *pionTransport) AcceptAnswer(answer json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(answer, &desc); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (t *pionTransport) AddICECandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	if err := t.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}
