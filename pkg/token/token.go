package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Booking codes use Crockford base32: no padding, no ambiguous characters.
const bookingCodeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// BookingCodeLength is the length of the human-facing booking code.
const BookingCodeLength = 8

// NewRaw generates a new raw guest token. Only the SHA-256 hash of the
// returned value may ever be stored.
func NewRaw() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Verify compares a raw token against a stored hash in constant time.
func Verify(raw, storedHash string) bool {
	computed := Hash(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// NewBookingCode generates a short human-facing booking code.
// Uniqueness is enforced by the store; a collision is retried by the caller.
func NewBookingCode() (string, error) {
	buf := make([]byte, BookingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate booking code: %w", err)
	}
	code := make([]byte, BookingCodeLength)
	for i, b := range buf {
		code[i] = bookingCodeAlphabet[int(b)%len(bookingCodeAlphabet)]
	}
	return string(code), nil
}
