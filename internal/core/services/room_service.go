package services

import (
	"context"
	"fmt"
	"time"

	"parley/internal/core/domain"
	"parley/internal/core/ports"
	"parley/pkg/validation"

	"go.uber.org/zap"
)

type roomService struct {
	roomRepo   ports.RoomRepository
	maxIDLen   int
	maxNameLen int
	logger     *zap.SugaredLogger
}

// NewRoomService wires the registry operations. The length caps come from
// configuration; zero or negative falls back to the validation default.
func NewRoomService(roomRepo ports.RoomRepository, maxIDLen, maxNameLen int, logger *zap.SugaredLogger) ports.RoomService {
	return &roomService{
		roomRepo:   roomRepo,
		maxIDLen:   maxIDLen,
		maxNameLen: maxNameLen,
		logger:     logger,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	if err := validation.ValidateRoomID(string(id), s.maxIDLen); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRoomID, err)
	}

	// The creator's name is the room id and the creator is the offerer.
	room := &domain.Room{
		ID:        id,
		Members:   []domain.ParticipantID{domain.ParticipantID(id)},
		OffererID: domain.ParticipantID(id),
		CreatedAt: time.Now(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Infow("room created", "room_id", id)
	return room, nil
}

func (s *roomService) JoinRoom(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, error) {
	if err := validation.ValidateParticipantName(string(participant), s.maxNameLen); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
	}

	room, err := s.roomRepo.AddMember(ctx, id, participant)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("participant joined room", "room_id", id, "participant", participant, "members", len(room.Members))
	return room, nil
}

func (s *roomService) LeaveRoom(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, bool, error) {
	room, deleted, err := s.roomRepo.RemoveMember(ctx, id, participant)
	if err != nil {
		return nil, false, err
	}

	if deleted {
		s.logger.Infow("room deleted", "room_id", id)
	} else {
		s.logger.Infow("participant left room", "room_id", id, "participant", participant)
	}
	return room, deleted, nil
}

func (s *roomService) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return s.roomRepo.GetByID(ctx, id)
}

func (s *roomService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.roomRepo.ListActive(ctx)
}
