package domain

import "errors"

var (
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNameTaken     = errors.New("participant name already taken in room")
	ErrNotAMember    = errors.New("participant is not a member of the room")
	ErrInvalidRoomID = errors.New("invalid room id")
	ErrInvalidName   = errors.New("invalid participant name")
)
