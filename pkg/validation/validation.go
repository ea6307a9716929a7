package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// RoomIDRegex validates room ID format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ParticipantNameRegex validates participant name format
	ParticipantNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// DefaultMaxLength caps identifiers when no limit is configured.
const DefaultMaxLength = 100

// ValidateRoomID validates room ID against the configured length cap.
func ValidateRoomID(roomID string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if roomID == "" {
		return fmt.Errorf("room ID is required")
	}
	if len(roomID) > maxLen {
		return fmt.Errorf("room ID is too long (max %d characters)", maxLen)
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("invalid room ID format")
	}
	return nil
}

// ValidateParticipantName validates a participant display name against the
// configured length cap.
func ValidateParticipantName(name string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("participant name is required")
	}
	if len(name) > maxLen {
		return fmt.Errorf("participant name is too long (max %d characters)", maxLen)
	}
	if !ParticipantNameRegex.MatchString(name) {
		return fmt.Errorf("participant name contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateServerURL validates a signal server URL
func ValidateServerURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid URL scheme (must be http, https, ws, or wss)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
