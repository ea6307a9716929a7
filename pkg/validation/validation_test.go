package validation

import "testing"

func TestValidateRoomID(t *testing.T) {
	cases := []struct {
		name    string
		roomID  string
		maxLen  int
		wantErr bool
	}{
		{"valid simple", "alice", 0, false},
		{"valid with dash and underscore", "room_42-a", 0, false},
		{"empty", "", 0, true},
		{"spaces", "room one", 0, true},
		{"unicode", "комната", 0, true},
		{"too long for default", string(make([]byte, 101)), 0, true},
		{"within configured cap", "abcde", 5, false},
		{"over configured cap", "abcdef", 5, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRoomID(tc.roomID, tc.maxLen)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %q, got nil", tc.roomID)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected %q to be valid, got: %v", tc.roomID, err)
			}
		})
	}
}

func TestValidateParticipantName(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		maxLen  int
		wantErr bool
	}{
		{"valid", "bob", 0, false},
		{"valid trimmed", "  bob  ", 0, false},
		{"empty", "", 0, true},
		{"punctuation", "bob!", 0, true},
		{"over configured cap", "bartholomew", 8, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateParticipantName(tc.value, tc.maxLen)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %q, got nil", tc.value)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected %q to be valid, got: %v", tc.value, err)
			}
		})
	}
}

func TestValidateServerURL(t *testing.T) {
	valid := []string{"ws://localhost:8081/ws", "wss://example.com/ws", "http://example.com"}
	for _, u := range valid {
		if err := ValidateServerURL(u); err != nil {
			t.Errorf("expected %q to be valid, got: %v", u, err)
		}
	}

	invalid := []string{"", "ftp://example.com", "ws://"}
	for _, u := range invalid {
		if err := ValidateServerURL(u); err == nil {
			t.Errorf("expected %q to be invalid", u)
		}
	}
}
