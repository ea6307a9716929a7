package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID generates a random ID with prefix
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// GenerateParticipantName generates a display name for a participant that
// did not pick one.
func GenerateParticipantName() string {
	b := make([]byte, 3)
	rand.Read(b)
	return fmt.Sprintf("guest-%s", hex.EncodeToString(b))
}
