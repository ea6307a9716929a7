package signal

import (
	"sync"

	"parley/internal/core/domain"
	"parley/internal/protocol"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// client wraps one websocket connection. All reads happen on its read pump,
// all writes on its write pump draining the send channel, which is what keeps
// delivery FIFO per receiver.
type client struct {
	id   string
	conn *websocket.Conn

	send chan protocol.Envelope
	done chan struct{}
	once sync.Once

	limiter *rate.Limiter

	// Set by the client's own read pump on create/join, cleared on leave.
	// Only read by other goroutines while holding the server mutex.
	username domain.ParticipantID
	roomID   domain.RoomID
}

// shutdown tears the connection down at most once. The write pump observes
// done and exits; the read pump exits on the close error.
func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
