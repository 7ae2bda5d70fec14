package secret

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		value, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		if len(value) < MinLength {
			t.Errorf("Generate() length = %d, want >= %d", len(value), MinLength)
		}

		for _, c := range value {
			if !isBase64URLChar(c) {
				t.Errorf("Generate() value contains invalid character: %c", c)
			}
		}

		if seen[value] {
			t.Errorf("Generate() returned duplicate value %q", value)
		}
		seen[value] = true
	}
}

func TestGenerateWithLength(t *testing.T) {
	tests := []struct {
		name     string
		numBytes int
		wantErr  bool
	}{
		{"default length", DefaultBytes, false},
		{"longer secret", 48, false},
		{"too short", 16, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := GenerateWithLength(tt.numBytes)
			if tt.wantErr {
				if err == nil {
					t.Errorf("GenerateWithLength(%d) expected error", tt.numBytes)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateWithLength(%d) error = %v", tt.numBytes, err)
			}
			if len(value) < MinLength {
				t.Errorf("GenerateWithLength(%d) length = %d", tt.numBytes, len(value))
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("first-secret")
	b := Fingerprint("second-secret")

	if len(a) != fingerprintLength {
		t.Errorf("Fingerprint() length = %d, want %d", len(a), fingerprintLength)
	}
	if a == b {
		t.Error("Fingerprint() should differ for different values")
	}
	if a != Fingerprint("first-secret") {
		t.Error("Fingerprint() should be deterministic")
	}
	if strings.Contains(a, "secret") {
		t.Error("Fingerprint() must not leak the value")
	}
}

func TestValidateLength(t *testing.T) {
	if err := ValidateLength(strings.Repeat("a", MinLength)); err != nil {
		t.Errorf("ValidateLength() error = %v", err)
	}
	if err := ValidateLength("short"); err == nil {
		t.Error("ValidateLength() expected error for short value")
	}
}

func isBase64URLChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '='
}
