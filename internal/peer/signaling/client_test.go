package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parley/internal/core/services"
	"parley/internal/infrastructure/monitoring"
	"parley/internal/infrastructure/repositories/memory"
	"parley/internal/infrastructure/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCollector = monitoring.NewPrometheusCollector()

func startRelay(t *testing.T) string {
	t.Helper()

	repo := memory.NewMemoryRoomRepository()
	svc := services.NewRoomService(repo, 0, 0, zap.NewNop().Sugar())
	ws := signal.NewWebSocketServer(svc, testCollector, zap.NewNop().Sugar())

	srv := httptest.NewServer(http.HandlerFunc(ws.HandleWebSocket))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, url string, events Events) *Client {
	t.Helper()

	c := New(url, events, zap.NewNop().Sugar())
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func TestCreateRoom_AckCorrelation(t *testing.T) {
	url := startRelay(t)

	alice := connect(t, url, Events{})
	require.NoError(t, alice.CreateRoom(context.Background(), "alice"))

	impostor := connect(t, url, Events{})
	err := impostor.CreateRoom(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "taken")
}

func TestJoinRoom_MembershipFlow(t *testing.T) {
	url := startRelay(t)

	updates := make(chan []string, 2)
	alice := connect(t, url, Events{
		OnRoomUpdated: func(users []string, offerer string) {
			assert.Equal(t, "alice", offerer)
			updates <- users
		},
	})
	require.NoError(t, alice.CreateRoom(context.Background(), "alice"))

	bob := connect(t, url, Events{})
	users, err := bob.JoinRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	select {
	case got := <-updates:
		assert.Equal(t, []string{"alice", "bob"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("creator never saw the membership update")
	}

	_, err = connect(t, url, Events{}).JoinRoom(context.Background(), "alice", "carol")
	assert.Error(t, err)
}

func TestNegotiationTraffic_RoundTrip(t *testing.T) {
	url := startRelay(t)

	offers := make(chan json.RawMessage, 1)
	answers := make(chan json.RawMessage, 1)
	candidates := make(chan json.RawMessage, 4)

	alice := connect(t, url, Events{
		OnAnswer: func(sdp json.RawMessage, from string) {
			assert.Equal(t, "bob", from)
			answers <- sdp
		},
		OnCandidate: func(c json.RawMessage, from string) { candidates <- c },
	})
	require.NoError(t, alice.CreateRoom(context.Background(), "alice"))

	bob := connect(t, url, Events{
		OnOffer: func(sdp json.RawMessage, from string) {
			assert.Equal(t, "alice", from)
			offers <- sdp
		},
	})
	_, err := bob.JoinRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, alice.SendOffer(json.RawMessage(`{"type":"offer","sdp":"v=0"}`)))
	select {
	case sdp := <-offers:
		assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(sdp))
	case <-time.After(2 * time.Second):
		t.Fatal("offer never reached the joiner")
	}

	require.NoError(t, bob.SendAnswer(json.RawMessage(`{"type":"answer","sdp":"v=0"}`)))
	select {
	case <-answers:
	case <-time.After(2 * time.Second):
		t.Fatal("answer never reached the creator")
	}

	require.NoError(t, bob.SendCandidate(json.RawMessage(`{"candidate":"candidate:1"}`)))
	select {
	case <-candidates:
	case <-time.After(2 * time.Second):
		t.Fatal("candidate never reached the creator")
	}
}

func TestLeaveRoom_NotifiesPeer(t *testing.T) {
	url := startRelay(t)

	left := make(chan string, 1)
	alice := connect(t, url, Events{
		OnUserLeft: func(username string) { left <- username },
	})
	require.NoError(t, alice.CreateRoom(context.Background(), "alice"))

	bob := connect(t, url, Events{})
	_, err := bob.JoinRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)

	bob.LeaveRoom()
	select {
	case username := <-left:
		assert.Equal(t, "bob", username)
	case <-time.After(2 * time.Second):
		t.Fatal("creator never learned the peer left")
	}
}
