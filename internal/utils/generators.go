package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateRequestID returns a random UUID for tagging a request.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ValidRequestID accepts caller-supplied ids that are short printable tokens.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r < 0x21 || r > 0x7e
	})
}
