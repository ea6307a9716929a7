package domain

import "time"

type RoomID string

type ParticipantID string

// Room pairs at most two participants under a shared identifier. The creator's
// display name doubles as the room id and the creator is always the offerer.
type Room struct {
	ID        RoomID
	Members   []ParticipantID
	OffererID ParticipantID
	CreatedAt time.Time
}

const MaxRoomMembers = 2

// HasMember reports whether id is currently a member of the room.
func (r *Room) HasMember(id ParticipantID) bool {
	for _, m := range r.Members {
		if m == id {
			return true
		}
	}
	return false
}

// IsFull reports whether the room has reached its two-member capacity.
func (r *Room) IsFull() bool {
	return len(r.Members) >= MaxRoomMembers
}

// OtherMembers returns every member except sender. With the two-member
// invariant this is at most one participant.
func (r *Room) OtherMembers(sender ParticipantID) []ParticipantID {
	others := make([]ParticipantID, 0, len(r.Members))
	for _, m := range r.Members {
		if m != sender {
			others = append(others, m)
		}
	}
	return others
}

// MemberNames returns the member list as plain strings for wire payloads.
func (r *Room) MemberNames() []string {
	names := make([]string, len(r.Members))
	for i, m := range r.Members {
		names[i] = string(m)
	}
	return names
}
