package ports

import (
	"context"

	"parley/internal/core/domain"
)

// RoomService is the registry's operation surface: who may join, who is
// paired with whom.
type RoomService interface {
	// CreateRoom creates a room whose sole member and offerer is the creator.
	// The creator's name is the room id.
	CreateRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)

	// JoinRoom admits participant as the second member and returns the room
	// after the join.
	JoinRoom(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, error)

	// LeaveRoom removes participant. The bool is true when the room was
	// deleted because it became empty; otherwise the returned room reflects
	// the remaining membership.
	LeaveRoom(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, bool, error)

	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)

	ListRooms(ctx context.Context) ([]*domain.Room, error)
}

// AssistantService answers free-form questions through an external
// text-generation provider. Stateless: the caller supplies the history.
type AssistantService interface {
	Ask(ctx context.Context, question string, history []domain.ChatMessage) (string, error)
}
