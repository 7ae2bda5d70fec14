package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// MinLength is the shortest client secret accepted by Azure AD for generated values.
	MinLength = 41

	// DefaultBytes is the number of random bytes behind a generated secret.
	// 32 bytes base64-encode to 44 characters.
	DefaultBytes = 32

	fingerprintLength = 12
)

// Generate returns a random client secret of DefaultBytes bytes of entropy.
func Generate() (string, error) {
	return GenerateWithLength(DefaultBytes)
}

// GenerateWithLength returns a random client secret built from numBytes random bytes.
//
// Parameters:
//   - numBytes: Number of random bytes (at least DefaultBytes)
//
// Returns:
//   - string: A base64-URL-encoded secret
//   - error: An error if numBytes is too small or random generation fails
func GenerateWithLength(numBytes int) (string, error) {
	if numBytes < DefaultBytes {
		return "", fmt.Errorf("secret length must be at least %d bytes", DefaultBytes)
	}

	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	value := base64.URLEncoding.EncodeToString(b)
	if len(value) < MinLength {
		return "", fmt.Errorf("generated secret too short: got %d, need %d", len(value), MinLength)
	}

	return value, nil
}

// Fingerprint returns a short hex digest of value, safe to log.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// ValidateLength checks a caller-supplied secret against MinLength.
func ValidateLength(value string) error {
	if len(value) < MinLength {
		return fmt.Errorf("secret too short: got %d characters, need at least %d", len(value), MinLength)
	}
	return nil
}
