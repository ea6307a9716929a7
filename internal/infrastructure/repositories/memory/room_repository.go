package memory

import (
	"context"
	"sync"
	"time"

	"parley/internal/core/domain"
	"parley/internal/core/ports"
)

// MemoryRoomRepository is the process-lifetime room registry. A single mutex
// serializes every create/join/leave against the map, which is what upholds
// the at-most-two-members invariant under concurrent joins. Rooms are not
// persisted and have no expiry.
type MemoryRoomRepository struct {
	rooms map[domain.RoomID]*domain.Room
	mu    sync.RWMutex
}

func NewMemoryRoomRepository() ports.RoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[domain.RoomID]*domain.Room),
	}
}

func (r *MemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrRoomExists
	}

	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	r.rooms[room.ID] = room
	return nil
}

func (r *MemoryRoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return snapshot(room), nil
}

func (r *MemoryRoomRepository) AddMember(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	if room.IsFull() {
		return nil, domain.ErrRoomFull
	}
	// Names route relay traffic, so they must be unique within the room.
	if room.HasMember(participant) {
		return nil, domain.ErrNameTaken
	}

	room.Members = append(room.Members, participant)
	return snapshot(room), nil
}

func (r *MemoryRoomRepository) RemoveMember(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, false, domain.ErrRoomNotFound
	}
	if !room.HasMember(participant) {
		return nil, false, domain.ErrNotAMember
	}

	members := room.Members[:0]
	for _, m := range room.Members {
		if m != participant {
			members = append(members, m)
		}
	}
	room.Members = members

	// A room with zero members must not exist.
	if len(room.Members) == 0 {
		delete(r.rooms, id)
		return nil, true, nil
	}

	return snapshot(room), false, nil
}

func (r *MemoryRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, snapshot(room))
	}

	return rooms, nil
}

func (r *MemoryRoomRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), nil
}

// snapshot copies a room so callers never share the mutable member slice with
// the registry.
func snapshot(room *domain.Room) *domain.Room {
	copied := *room
	copied.Members = append([]domain.ParticipantID(nil), room.Members...)
	return &copied
}
