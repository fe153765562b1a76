package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Input length limits to prevent resource exhaustion
const (
	MaxEmailLength   = 320   // RFC 5321: 64 chars (local) + 1 (@) + 255 (domain)
	MaxMessageLength = 10000 // 10KB per chat message
	MaxRoomIDLength  = 128
	MaxNameLength    = 255
)

// ValidateMessageContent validates chat message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message content cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return fmt.Errorf("message content exceeds maximum size of %d bytes (got %d)", MaxMessageLength, len(content))
	}
	return nil
}

// ValidateRoomID validates a room identifier.
func ValidateRoomID(roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("room id cannot be empty")
	}
	if len(roomID) > MaxRoomIDLength {
		return fmt.Errorf("room id exceeds maximum length of %d characters (got %d)", MaxRoomIDLength, len(roomID))
	}
	return nil
}

// ValidateDisplayName validates an agent or guest display name.
// Empty names are allowed; some flows fill them in later.
func ValidateDisplayName(name string) error {
	if name == "" {
		return nil
	}
	length := utf8.RuneCountInString(name)
	if length > MaxNameLength {
		return fmt.Errorf("name exceeds maximum length of %d characters (got %d)", MaxNameLength, length)
	}
	return nil
}

// ValidateEmailFormat validates the format and length of an email
// address used for agent login.
func ValidateEmailFormat(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return fmt.Errorf("email exceeds maximum length of %d characters", MaxEmailLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}
