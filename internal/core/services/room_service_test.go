package services

import (
	"context"
	"testing"

	"parley/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockRoomRepository for service tests
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) AddMember(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, error) {
	args := m.Called(ctx, id, participant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) RemoveMember(ctx context.Context, id domain.RoomID, participant domain.ParticipantID) (*domain.Room, bool, error) {
	args := m.Called(ctx, id, participant)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *MockRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestCreateRoom_CreatorIsSoleMemberAndOfferer(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(room *domain.Room) bool {
		return room.ID == "alice" &&
			len(room.Members) == 1 &&
			room.Members[0] == "alice" &&
			room.OffererID == "alice"
	})).Return(nil)

	room, err := svc.CreateRoom(context.Background(), "alice")

	assert.NoError(t, err)
	assert.Equal(t, domain.RoomID("alice"), room.ID)
	repo.AssertExpectations(t)
}

func TestCreateRoom_DuplicateID(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrRoomExists)

	_, err := svc.CreateRoom(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrRoomExists)
}

func TestCreateRoom_InvalidID(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	_, err := svc.CreateRoom(context.Background(), "no spaces allowed")

	assert.ErrorIs(t, err, domain.ErrInvalidRoomID)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRoom_ConfiguredIDLengthCap(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 5, 5, zap.NewNop().Sugar())

	_, err := svc.CreateRoom(context.Background(), "toolong")

	assert.ErrorIs(t, err, domain.ErrInvalidRoomID)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestJoinRoom_ConfiguredNameLengthCap(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 5, 5, zap.NewNop().Sugar())

	_, err := svc.JoinRoom(context.Background(), "alice", "bartholomew")

	assert.ErrorIs(t, err, domain.ErrInvalidName)
	repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinRoom_ReturnsFullMemberList(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	joined := &domain.Room{
		ID:        "alice",
		Members:   []domain.ParticipantID{"alice", "bob"},
		OffererID: "alice",
	}
	repo.On("AddMember", mock.Anything, domain.RoomID("alice"), domain.ParticipantID("bob")).Return(joined, nil)

	room, err := svc.JoinRoom(context.Background(), "alice", "bob")

	assert.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, room.MemberNames())
}

func TestJoinRoom_FullOrMissing(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	repo.On("AddMember", mock.Anything, domain.RoomID("full"), mock.Anything).Return(nil, domain.ErrRoomFull)
	repo.On("AddMember", mock.Anything, domain.RoomID("ghost"), mock.Anything).Return(nil, domain.ErrRoomNotFound)

	_, err := svc.JoinRoom(context.Background(), "full", "carol")
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	_, err = svc.JoinRoom(context.Background(), "ghost", "carol")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestJoinRoom_InvalidName(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	_, err := svc.JoinRoom(context.Background(), "alice", "bad name!")

	assert.ErrorIs(t, err, domain.ErrInvalidName)
	repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeaveRoom_ReportsDeletion(t *testing.T) {
	repo := new(MockRoomRepository)
	svc := NewRoomService(repo, 0, 0, zap.NewNop().Sugar())

	repo.On("RemoveMember", mock.Anything, domain.RoomID("alice"), domain.ParticipantID("alice")).Return(nil, true, nil)

	room, deleted, err := svc.LeaveRoom(context.Background(), "alice", "alice")

	assert.NoError(t, err)
	assert.True(t, deleted)
	assert.Nil(t, room)
}
