package game

import (
	"crypto/rand"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength is the length of generated room codes
const DefaultCodeLength = 4

// GenerateRoomCode returns a random uppercase base-36 code.
// Uniqueness is enforced by the store's conditional create, not here.
func GenerateRoomCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	b := make([]byte, length)
	rand.Read(b)

	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}

	return string(b)
}

// NormalizeRoomCode upper-cases and trims a user-supplied code
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode reports whether code is length characters of A-Z / 0-9
func ValidRoomCode(code string, length int) bool {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if len(code) != length {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return false
		}
	}
	return true
}
