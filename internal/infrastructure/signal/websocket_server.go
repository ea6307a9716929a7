package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"parley/internal/core/domain"
	"parley/internal/core/ports"
	"parley/internal/infrastructure/monitoring"
	"parley/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const sendBufferSize = 64

// WebSocketServer is the negotiation relay. It moves offer, answer and
// connectivity-candidate messages between the two members of a room without
// looking inside them, and broadcasts membership changes.
type WebSocketServer struct {
	roomService ports.RoomService
	collector   *monitoring.PrometheusCollector

	clients map[string]*client
	members map[domain.RoomID]map[domain.ParticipantID]*client
	mu      sync.RWMutex

	pingInterval   time.Duration
	pongTimeout    time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64
	messageRate    rate.Limit
	messageBurst   int

	logger *zap.SugaredLogger
}

func NewWebSocketServer(roomService ports.RoomService, collector *monitoring.PrometheusCollector, logger *zap.SugaredLogger) *WebSocketServer {
	return &WebSocketServer{
		roomService:    roomService,
		collector:      collector,
		clients:        make(map[string]*client),
		members:        make(map[domain.RoomID]map[domain.ParticipantID]*client),
		pingInterval:   30 * time.Second,
		pongTimeout:    60 * time.Second,
		writeTimeout:   10 * time.Second,
		maxMessageSize: 64 * 1024, // enough for any SDP
		messageRate:    rate.Inf,
		messageBurst:   1,
		logger:         logger,
	}
}

// SetPingInterval sets ping interval for WebSocket connections
func (s *WebSocketServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

// SetPongTimeout sets pong timeout for WebSocket connections
func (s *WebSocketServer) SetPongTimeout(timeout time.Duration) {
	s.pongTimeout = timeout
}

// SetMessageRate caps inbound messages per connection.
func (s *WebSocketServer) SetMessageRate(perSecond float64, burst int) {
	if perSecond > 0 {
		s.messageRate = rate.Limit(perSecond)
		s.messageBurst = burst
	}
}

// SetMaxMessageSize caps the size of a single inbound message.
func (s *WebSocketServer) SetMaxMessageSize(bytes int64) {
	if bytes > 0 {
		s.maxMessageSize = bytes
	}
}

// ConnectedClients returns the number of live websocket connections.
func (s *WebSocketServer) ConnectedClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan protocol.Envelope, sendBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(s.messageRate, s.messageBurst),
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.collector.ClientConnected()

	s.logger.Infow("client connected", "client_id", c.id, "remote_addr", conn.RemoteAddr())

	go s.writePump(c)
	s.readPump(c)

	// Transport loss without leave-room runs the same departure path as an
	// explicit leave. Required cleanup, not best effort.
	s.disconnect(c)
}

func (s *WebSocketServer) readPump(c *client) {
	defer c.shutdown()

	c.conn.SetReadLimit(s.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading from client", "client_id", c.id, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))

		if !c.limiter.Allow() {
			s.deliver(c, protocol.NewEnvelope(protocol.EventError, protocol.ErrorMessage{Message: "rate limit exceeded"}))
			continue
		}

		if err := s.handleMessage(context.Background(), c, env); err != nil {
			s.logger.Infow("error handling message", "client_id", c.id, "event", env.Event, "error", err)
			s.deliver(c, protocol.NewEnvelope(protocol.EventError, protocol.ErrorMessage{Message: err.Error()}))
		}
	}
}

func (s *WebSocketServer) writePump(c *client) {
	pingTicker := time.NewTicker(s.pingInterval)
	defer func() {
		pingTicker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteJSON(env); err != nil {
				s.logger.Infow("error writing to client", "client_id", c.id, "error", err)
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (s *WebSocketServer) handleMessage(ctx context.Context, c *client, env protocol.Envelope) error {
	switch env.Event {
	case protocol.EventCreateRoom:
		return s.handleCreateRoom(ctx, c, env)
	case protocol.EventJoinRoom:
		return s.handleJoinRoom(ctx, c, env)
	case protocol.EventOffer:
		return s.handleOffer(c, env)
	case protocol.EventAnswer:
		return s.handleAnswer(c, env)
	case protocol.EventICECandidate:
		return s.handleICECandidate(c, env)
	case protocol.EventLeaveRoom:
		s.handleLeave(ctx, c)
		return nil
	default:
		return fmt.Errorf("unknown event: %s", env.Event)
	}
}

func (s *WebSocketServer) handleCreateRoom(ctx context.Context, c *client, env protocol.Envelope) error {
	var req protocol.CreateRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return fmt.Errorf("invalid create-room payload: %w", err)
	}

	// A connection exists in at most one room. Creating while joined runs the
	// departure path first so the old room never keeps a phantom member.
	s.handleLeave(ctx, c)

	// Capacity conflicts are a boolean failure to the requester, never an
	// error on the channel.
	room, err := s.roomService.CreateRoom(ctx, domain.RoomID(req.RoomID))
	if err != nil {
		s.logger.Infow("create-room refused", "room_id", req.RoomID, "reason", err)
		s.collector.JoinRefused("room_exists")
		s.deliver(c, protocol.NewEnvelope(protocol.EventCreateRoom, protocol.CreateRoomAck{Success: false}))
		return nil
	}

	s.mu.Lock()
	c.username = room.OffererID
	c.roomID = room.ID
	s.members[room.ID] = map[domain.ParticipantID]*client{room.OffererID: c}
	s.mu.Unlock()

	s.collector.RoomCreated()
	s.deliver(c, protocol.NewEnvelope(protocol.EventCreateRoom, protocol.CreateRoomAck{Success: true}))
	return nil
}

func (s *WebSocketServer) handleJoinRoom(ctx context.Context, c *client, env protocol.Envelope) error {
	var req protocol.JoinRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return fmt.Errorf("invalid join-room payload: %w", err)
	}

	// Same single-room rule as create: leave the current room first.
	s.handleLeave(ctx, c)

	room, err := s.roomService.JoinRoom(ctx, domain.RoomID(req.RoomID), domain.ParticipantID(req.Username))
	if err != nil {
		s.logger.Infow("join-room refused", "room_id", req.RoomID, "participant", req.Username, "reason", err)
		s.collector.JoinRefused(joinRefusalReason(err))
		s.deliver(c, protocol.NewEnvelope(protocol.EventJoinRoom, protocol.JoinRoomAck{Success: false}))
		return nil
	}

	s.mu.Lock()
	c.username = domain.ParticipantID(req.Username)
	c.roomID = room.ID
	if s.members[room.ID] == nil {
		s.members[room.ID] = make(map[domain.ParticipantID]*client)
	}
	s.members[room.ID][c.username] = c
	recipients := s.roomClients(room.ID)
	s.mu.Unlock()

	s.deliver(c, protocol.NewEnvelope(protocol.EventJoinRoom, protocol.JoinRoomAck{
		Success: true,
		Users:   room.MemberNames(),
	}))

	// Every current member gets exactly one room-updated reflecting the
	// post-join membership.
	update := protocol.NewEnvelope(protocol.EventRoomUpdated, protocol.RoomUpdated{
		Users:   room.MemberNames(),
		Offerer: string(room.OffererID),
	})
	for _, member := range recipients {
		s.deliver(member, update)
	}
	return nil
}

func (s *WebSocketServer) handleOffer(c *client, env protocol.Envelope) error {
	var msg protocol.OfferMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return fmt.Errorf("invalid offer payload: %w", err)
	}

	out := protocol.NewEnvelope(protocol.EventOffer, protocol.OfferMessage{
		Offer:    msg.Offer,
		Username: msg.Username,
	})
	s.relay(c, domain.RoomID(msg.RoomID), "offer", out)
	return nil
}

func (s *WebSocketServer) handleAnswer(c *client, env protocol.Envelope) error {
	var msg protocol.AnswerMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return fmt.Errorf("invalid answer payload: %w", err)
	}

	out := protocol.NewEnvelope(protocol.EventAnswer, protocol.AnswerMessage{
		Answer:   msg.Answer,
		Username: msg.Username,
	})
	s.relay(c, domain.RoomID(msg.RoomID), "answer", out)
	return nil
}

func (s *WebSocketServer) handleICECandidate(c *client, env protocol.Envelope) error {
	var msg protocol.ICECandidateMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return fmt.Errorf("invalid ice-candidate payload: %w", err)
	}

	out := protocol.NewEnvelope(protocol.EventICECandidate, protocol.ICECandidateMessage{
		Candidate: msg.Candidate,
		Username:  msg.Username,
	})
	s.relay(c, domain.RoomID(msg.RoomID), "ice_candidate", out)
	return nil
}

// relay forwards a negotiation message to every other member of the room.
// A room that no longer resolves is a reachable race with a departing peer:
// the message is dropped, never an error.
func (s *WebSocketServer) relay(sender *client, roomID domain.RoomID, kind string, env protocol.Envelope) {
	if roomID == "" {
		roomID = sender.roomID
	}

	s.mu.RLock()
	room, ok := s.members[roomID]
	var recipients []*client
	if ok {
		for name, member := range room {
			if name != sender.username {
				recipients = append(recipients, member)
			}
		}
	}
	s.mu.RUnlock()

	if !ok {
		s.logger.Debugw("dropping relay for unknown room", "room_id", roomID, "kind", kind)
		s.collector.StaleRelayDropped()
		return
	}

	for _, member := range recipients {
		s.deliver(member, env)
	}
	s.collector.MessageRelayed(kind)
}

func (s *WebSocketServer) handleLeave(ctx context.Context, c *client) {
	s.mu.Lock()
	roomID, username := c.roomID, c.username
	if roomID == "" {
		s.mu.Unlock()
		return
	}
	c.roomID, c.username = "", ""
	if room, ok := s.members[roomID]; ok {
		delete(room, username)
		if len(room) == 0 {
			delete(s.members, roomID)
		}
	}
	remaining := s.roomClients(roomID)
	s.mu.Unlock()

	_, deleted, err := s.roomService.LeaveRoom(ctx, roomID, username)
	if err != nil {
		s.logger.Infow("leave-room failed", "room_id", roomID, "participant", username, "error", err)
		return
	}
	if deleted {
		s.collector.RoomDeleted()
		return
	}

	left := protocol.NewEnvelope(protocol.EventUserLeft, string(username))
	for _, member := range remaining {
		s.deliver(member, left)
	}
}

func (s *WebSocketServer) disconnect(c *client) {
	s.handleLeave(context.Background(), c)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	s.collector.ClientDisconnected()
	s.logger.Infow("client disconnected", "client_id", c.id)
}

// deliver queues an envelope on the client's ordered send channel. A receiver
// that cannot drain its buffer gets dropped instead of stalling the sender or
// the registry.
func (s *WebSocketServer) deliver(c *client, env protocol.Envelope) {
	select {
	case c.send <- env:
	default:
		s.logger.Warnw("send buffer full, dropping client", "client_id", c.id)
		c.shutdown()
	}
}

// roomClients must be called with the server mutex held.
func (s *WebSocketServer) roomClients(roomID domain.RoomID) []*client {
	room := s.members[roomID]
	clients := make([]*client, 0, len(room))
	for _, member := range room {
		clients = append(clients, member)
	}
	return clients
}

// ErrRoomNotFound and ErrRoomFull surface to the client as the same boolean
// failure; the metric keeps them apart.
func joinRefusalReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrNameTaken):
		return "name_taken"
	default:
		return "invalid_request"
	}
}
