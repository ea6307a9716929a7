package ports

import (
	"context"

	"parley/internal/core/domain"
)

// RoomRepository owns the room registry state. Every method performs its
// read-modify-write of a single room atomically, so callers never observe a
// room between membership changes.
type RoomRepository interface {
	// Create registers a new room. Returns domain.ErrRoomExists if the id is
	// already live; among concurrent creators of the same id exactly one wins.
	Create(ctx context.Context, room *domain.Room) error

	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)

	// AddMember admits participant into the room and returns the room after
	// the join. Returns domain.ErrRoomNotFound or domain.ErrRoomFull.
	AddMember(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, error)

	// RemoveMember drops participant from the room. The returned bool is true
	// when the room became empty and was deleted. Returns the room as it looks
	// after the removal (nil when deleted).
	RemoveMember(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, bool, error)

	ListActive(ctx context.Context) ([]*domain.Room, error)

	Count(ctx context.Context) (int, error)
}
