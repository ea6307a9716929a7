// Package protocol defines the signal-channel message catalogue shared by the
// server and the Go peer client. Session descriptions and connectivity
// candidates travel as raw JSON: the relay never parses them.
package protocol

import "encoding/json"

const (
	EventCreateRoom   = "create-room"
	EventJoinRoom     = "join-room"
	EventRoomUpdated  = "room-updated"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
	EventLeaveRoom    = "leave-room"
	EventUserLeft     = "user-left"
	EventError        = "error"
)

// Envelope frames every message on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into a framed message. Marshal errors are
// impossible for the catalogue types, so they surface as an empty Data.
func NewEnvelope(event string, payload interface{}) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: data}
}

type CreateRoomRequest struct {
	RoomID string `json:"roomId"`
}

type CreateRoomAck struct {
	Success bool `json:"success"`
}

type JoinRoomRequest struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

type JoinRoomAck struct {
	Success bool     `json:"success"`
	Users   []string `json:"users,omitempty"`
}

// RoomUpdated is broadcast to every member after a successful join so both
// sides see the same occupancy and role assignment without polling.
type RoomUpdated struct {
	Users   []string `json:"users"`
	Offerer string   `json:"offerer"`
}

// OfferMessage carries a session description from the offerer. The server
// re-emits it to the other member with RoomID cleared.
type OfferMessage struct {
	Offer    json.RawMessage `json:"offer"`
	Username string          `json:"username"`
	RoomID   string          `json:"roomId,omitempty"`
}

type AnswerMessage struct {
	Answer   json.RawMessage `json:"answer"`
	Username string          `json:"username"`
	RoomID   string          `json:"roomId,omitempty"`
}

type ICECandidateMessage struct {
	Candidate json.RawMessage `json:"candidate"`
	Username  string          `json:"username"`
	RoomID    string          `json:"roomId,omitempty"`
}

type LeaveRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
