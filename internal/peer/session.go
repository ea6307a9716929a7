package peer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Step is the position in the connection setup ladder. Steps only ever move
// forward during a negotiation; any teardown drops straight back to StepIdle.
type Step int

const (
	StepIdle           Step = iota // nothing prepared
	StepMediaReady                 // local media acquired
	StepTransportReady             // transport built, tracks attached
	StepDescriptionSent            // our description is on the wire
	StepConnected                  // connectivity checks succeeded
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepMediaReady:
		return "media-ready"
	case StepTransportReady:
		return "transport-ready"
	case StepDescriptionSent:
		return "description-sent"
	case StepConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Role decides which side produces the offer. The room assigns it: the
// creator offers, the joiner answers.
type Role int

const (
	RoleNone Role = iota
	RoleOfferer
	RoleAnswerer
)

func (r Role) String() string {
	switch r {
	case RoleOfferer:
		return "offerer"
	case RoleAnswerer:
		return "answerer"
	default:
		return "none"
	}
}

var (
	ErrNoTransport   = errors.New("transport not ready")
	ErrNoRemoteOffer = errors.New("no remote offer received")
	ErrInvalidStep   = errors.New("operation not valid in current step")
)

// Outbound carries locally produced negotiation messages to the relay.
type Outbound interface {
	SendOffer(sdp json.RawMessage) error
	SendAnswer(sdp json.RawMessage) error
	SendCandidate(candidate json.RawMessage) error
}

// Session is one participant's negotiation state machine. All methods are
// safe to call from the signaling read loop and transport callbacks
// concurrently.
type Session struct {
	mu sync.Mutex

	factory TransportFactory
	out     Outbound
	logger  *zap.SugaredLogger

	role      Role
	step      Step
	transport Transport

	// remoteOffer holds the peer's offer until Answer is invoked. A second
	// remote offer for the same attempt is dropped.
	remoteOffer    json.RawMessage
	remoteOfferSet bool

	// remoteApplied flips once the peer's description reached the
	// transport; until then arriving candidates wait in pending.
	remoteApplied bool
	pending       []json.RawMessage
}

func NewSession(factory TransportFactory, out Outbound, logger *zap.SugaredLogger) *Session {
	return &Session{
		factory: factory,
		out:     out,
		logger:  logger,
	}
}

// SetOutbound wires the signaling channel. It must be set before the first
// Call or Answer; construction order sometimes requires the session to exist
// before its transport for messages does.
func (s *Session) SetOutbound(out Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = out
}

// SetRole records which side of the negotiation this participant is on. The
// room's membership update decides it.
func (s *Session) SetRole(role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// AcquireMedia marks the local media as ready. It is the only transition out
// of the idle step.
func (s *Session) AcquireMedia() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepIdle {
		return fmt.Errorf("%w: acquire media at %s", ErrInvalidStep, s.step)
	}
	s.step = StepMediaReady
	return nil
}

// Connect builds the transport and attaches the media tracks. Candidates the
// transport gathers are relayed immediately; the connected signal moves the
// session to its final step.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMediaReady {
		return fmt.Errorf("%w: connect at %s", ErrInvalidStep, s.step)
	}

	transport, err := s.factory(TransportCallbacks{
		OnICECandidate: s.sendLocalCandidate,
		OnConnected:    s.markConnected,
		OnClosed:       s.Reset,
	})
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}

	s.transport = transport
	s.step = StepTransportReady
	return nil
}

// Call produces and sends the offer. Only the offerer calls it, once the
// room has a second member.
func (s *Session) Call() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return ErrNoTransport
	}
	if s.out == nil {
		return fmt.Errorf("no outbound channel configured")
	}
	if s.step != StepTransportReady {
		return fmt.Errorf("%w: call at %s", ErrInvalidStep, s.step)
	}

	offer, err := s.transport.CreateOffer()
	if err != nil {
		return err
	}
	if err := s.out.SendOffer(offer); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}

	s.step = StepDescriptionSent
	s.logger.Infow("offer sent", "step", s.step.String())
	return nil
}

// Answer applies the stored remote offer and sends back the answer. It fails
// locally when no offer has arrived yet; the step does not move.
func (s *Session) Answer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return ErrNoTransport
	}
	if s.out == nil {
		return fmt.Errorf("no outbound channel configured")
	}
	if !s.remoteOfferSet {
		return ErrNoRemoteOffer
	}
	if s.step != StepTransportReady {
		return fmt.Errorf("%w: answer at %s", ErrInvalidStep, s.step)
	}

	answer, err := s.transport.CreateAnswer(s.remoteOffer)
	if err != nil {
		return err
	}
	if err := s.out.SendAnswer(answer); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}

	s.remoteApplied = true
	s.flushPendingLocked()
	s.step = StepDescriptionSent
	s.logger.Infow("answer sent", "step", s.step.String())
	return nil
}

// HandleRemoteOffer stores the peer's offer for Answer. The offer may arrive
// before the transport exists; nothing is applied until Answer, which
// requires one. A repeated offer in the same attempt changes nothing.
func (s *Session) HandleRemoteOffer(offer json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role == RoleOfferer {
		s.logger.Debugw("ignoring offer addressed to the offerer")
		return
	}
	if s.remoteOfferSet {
		s.logger.Debugw("ignoring duplicate remote offer")
		return
	}

	s.remoteOffer = offer
	s.remoteOfferSet = true
}

// HandleRemoteAnswer applies the peer's answer to the offered connection.
func (s *Session) HandleRemoteAnswer(answer json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != RoleOfferer || s.step != StepDescriptionSent || s.transport == nil {
		s.logger.Debugw("ignoring unexpected answer", "role", s.role.String(), "step", s.step.String())
		return
	}
	if s.remoteApplied {
		s.logger.Debugw("ignoring duplicate remote answer")
		return
	}

	if err := s.transport.AcceptAnswer(answer); err != nil {
		s.logger.Warnw("failed to apply remote answer", "error", err)
		return
	}
	s.remoteApplied = true
	s.flushPendingLocked()
}

// HandleRemoteCandidate feeds a remote candidate to the transport, or parks
// it until the remote description lands. Order of arrival is preserved.
func (s *Session) HandleRemoteCandidate(candidate json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil || !s.remoteApplied {
		s.pending = append(s.pending, candidate)
		return
	}
	if err := s.transport.AddICECandidate(candidate); err != nil {
		s.logger.Warnw("failed to add remote candidate", "error", err)
	}
}

// HandlePeerLeft tears the negotiation down. The role is room-assigned and
// survives so the same participant answers or offers again when a new peer
// arrives.
func (s *Session) HandlePeerLeft() {
	s.Reset()
}

// HangUp ends the call locally. Same teardown as the peer leaving.
func (s *Session) HangUp() {
	s.Reset()
}

// Reset is the single teardown path back to the idle step.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.logger.Debugw("transport close", "error", err)
		}
		s.transport = nil
	}

	s.remoteOffer = nil
	s.remoteOfferSet = false
	s.remoteApplied = false
	s.pending = nil
	s.step = StepIdle
}

// markConnected is invoked by the transport once connectivity checks pass.
// Only a session that has sent its description can complete.
func (s *Session) markConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDescriptionSent {
		s.logger.Debugw("connected signal at unexpected step", "step", s.step.String())
		return
	}
	s.step = StepConnected
	s.logger.Infow("peer connected")
}

func (s *Session) sendLocalCandidate(candidate json.RawMessage) {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	if out == nil {
		return
	}
	if err := out.SendCandidate(candidate); err != nil {
		s.logger.Warnw("failed to send local candidate", "error", err)
	}
}

// flushPendingLocked replays buffered candidates in arrival order. Caller
// holds the mutex.
func (s *Session) flushPendingLocked() {
	for _, candidate := range s.pending {
		if err := s.transport.AddICECandidate(candidate); err != nil {
			s.logger.Warnw("failed to add buffered candidate", "error", err)
		}
	}
	s.pending = nil
}
