package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"parley/internal/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	ackTimeout     = 10 * time.Second
)

// Events are invoked from the read loop as relay traffic arrives. Handlers
// must not block; hand off to the session instead.
type Events struct {
	OnRoomUpdated func(users []string, offerer string)
	OnOffer       func(sdp json.RawMessage, from string)
	OnAnswer      func(sdp json.RawMessage, from string)
	OnCandidate   func(candidate json.RawMessage, from string)
	OnUserLeft    func(username string)
	OnError       func(message string)
}

// Client manages the WebSocket connection to the rendezvous server. Room
// operations are request/acknowledge; negotiation messages flow fire and
// forget, ordered by a single outgoing channel.
type Client struct {
	serverURL string
	events    Events
	logger    *zap.SugaredLogger

	conn     *websocket.Conn
	outgoing chan protocol.Envelope
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	pending  map[string]chan json.RawMessage
	roomID   string
	username string
}

func New(serverURL string, events Events, logger *zap.SugaredLogger) *Client {
	return &Client{
		serverURL: serverURL,
		events:    events,
		logger:    logger,
		outgoing:  make(chan protocol.Envelope, 32),
		done:      make(chan struct{}),
		pending:   make(map[string]chan json.RawMessage),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.serverURL, err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

// CreateRoom claims a room id and makes this client its offerer. A refused
// claim means someone already holds the id.
func (c *Client) CreateRoom(ctx context.Context, roomID string) error {
	data, err := c.request(ctx, protocol.EventCreateRoom, protocol.CreateRoomRequest{RoomID: roomID})
	if err != nil {
		return err
	}

	var ack protocol.CreateRoomAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("decode create-room ack: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("room id %q is taken", roomID)
	}

	c.mu.Lock()
	c.roomID = roomID
	c.username = roomID // the creator is addressed by the room's name
	c.mu.Unlock()
	return nil
}

// JoinRoom enters an existing room and returns the resulting member list.
func (c *Client) JoinRoom(ctx context.Context, roomID, username string) ([]string, error) {
	data, err := c.request(ctx, protocol.EventJoinRoom, protocol.JoinRoomRequest{
		RoomID:   roomID,
		Username: username,
	})
	if err != nil {
		return nil, err
	}

	var ack protocol.JoinRoomAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, fmt.Errorf("decode join-room ack: %w", err)
	}
	if !ack.Success {
		return nil, fmt.Errorf("cannot join room %q: full or missing", roomID)
	}

	c.mu.Lock()
	c.roomID = roomID
	c.username = username
	c.mu.Unlock()
	return ack.Users, nil
}

// LeaveRoom tells the relay we are gone. The connection stays open so the
// client can create or join another room.
func (c *Client) LeaveRoom() {
	c.mu.Lock()
	roomID, username := c.roomID, c.username
	c.roomID, c.username = "", ""
	c.mu.Unlock()

	if roomID == "" {
		return
	}
	c.send(protocol.NewEnvelope(protocol.EventLeaveRoom, protocol.LeaveRoomRequest{
		RoomID:   roomID,
		Username: username,
	}))
}

// SendOffer implements the session's outbound path.
func (c *Client) SendOffer(sdp json.RawMessage) error {
	roomID, username := c.identity()
	return c.send(protocol.NewEnvelope(protocol.EventOffer, protocol.OfferMessage{
		Offer:    sdp,
		Username: username,
		RoomID:   roomID,
	}))
}

func (c *Client) SendAnswer(sdp json.RawMessage) error {
	roomID, username := c.identity()
	return c.send(protocol.NewEnvelope(protocol.EventAnswer, protocol.AnswerMessage{
		Answer:   sdp,
		Username: username,
		RoomID:   roomID,
	}))
}

func (c *Client) SendCandidate(candidate json.RawMessage) error {
	roomID, username := c.identity()
	return c.send(protocol.NewEnvelope(protocol.EventICECandidate, protocol.ICECandidateMessage{
		Candidate: candidate,
		Username:  username,
		RoomID:    roomID,
	}))
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Username reports the name this client is known by in its current room.
// Creators are addressed by the room's name.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) identity() (roomID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.username
}

// request sends an envelope and waits for the server's acknowledgement of
// the same event type.
func (c *Client) request(ctx context.Context, event string, payload interface{}) (json.RawMessage, error) {
	ack := make(chan json.RawMessage, 1)

	c.mu.Lock()
	if _, exists := c.pending[event]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s already in flight", event)
	}
	c.pending[event] = ack
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, event)
		c.mu.Unlock()
	}()

	if err := c.send(protocol.NewEnvelope(event, payload)); err != nil {
		return nil, err
	}

	select {
	case data := <-ack:
		return data, nil
	case <-time.After(ackTimeout):
		return nil, fmt.Errorf("timed out waiting for %s acknowledgement", event)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("connection closed")
	}
}

func (c *Client) send(env protocol.Envelope) error {
	select {
	case c.outgoing <- env:
		return nil
	case <-c.done:
		return fmt.Errorf("connection closed")
	}
}

func (c *Client) readPump() {
	defer c.Close()

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Infow("connection lost", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case env := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) dispatch(env protocol.Envelope) {
	// Acknowledgements are answered requests, not events.
	c.mu.Lock()
	ack, waiting := c.pending[env.Event]
	c.mu.Unlock()
	if waiting {
		ack <- env.Data
		return
	}

	switch env.Event {
	case protocol.EventRoomUpdated:
		var update protocol.RoomUpdated
		if err := json.Unmarshal(env.Data, &update); err != nil {
			c.logger.Warnw("bad room-updated payload", "error", err)
			return
		}
		if c.events.OnRoomUpdated != nil {
			c.events.OnRoomUpdated(update.Users, update.Offerer)
		}

	case protocol.EventOffer:
		var msg protocol.OfferMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.logger.Warnw("bad offer payload", "error", err)
			return
		}
		if c.events.OnOffer != nil {
			c.events.OnOffer(msg.Offer, msg.Username)
		}

	case protocol.EventAnswer:
		var msg protocol.AnswerMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.logger.Warnw("bad answer payload", "error", err)
			return
		}
		if c.events.OnAnswer != nil {
			c.events.OnAnswer(msg.Answer, msg.Username)
		}

	case protocol.EventICECandidate:
		var msg protocol.ICECandidateMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.logger.Warnw("bad ice-candidate payload", "error", err)
			return
		}
		if c.events.OnCandidate != nil {
			c.events.OnCandidate(msg.Candidate, msg.Username)
		}

	case protocol.EventUserLeft:
		var username string
		if err := json.Unmarshal(env.Data, &username); err != nil {
			c.logger.Warnw("bad user-left payload", "error", err)
			return
		}
		if c.events.OnUserLeft != nil {
			c.events.OnUserLeft(username)
		}

	case protocol.EventError:
		var msg protocol.ErrorMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		if c.events.OnError != nil {
			c.events.OnError(msg.Message)
		}

	default:
		c.logger.Debugw("ignoring unknown event", "event", env.Event)
	}
}
