package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService returns a PasswordService with bcrypt cost 4,
// the minimum allowed, so each hash takes milliseconds.
func newTestPasswordService() *PasswordService {
	return NewPasswordService(bcrypt.MinCost)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_RejectsPasswordOver72Bytes(t *testing.T) {
	ps := newTestPasswordService()

	_, err := ps.Hash(strings.Repeat("a", 73))
	if err != ErrPasswordTooLong {
		t.Fatalf("Hash() error = %v, want ErrPasswordTooLong", err)
	}
}

func TestHash_AcceptsPasswordExactly72Bytes(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("Hash() should accept a 72-byte password, got error: %v", err)
	}
}

func TestNewPasswordService_InvalidCostFallsBackToDefault(t *testing.T) {
	for _, cost := range []int{0, 3, 32} {
		if ps := NewPasswordService(cost); ps.cost != DefaultCost {
			t.Errorf("NewPasswordService(%d).cost = %d, want %d", cost, ps.cost, DefaultCost)
		}
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name     string
		password string
	}{
		{"simple alphanumeric", "hello123"},
		{"special characters", "p@$$w0rd!#%"},
		{"unicode", "пароль-密码"},
		{"whitespace", "  leading and trailing  "},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", tc.password, err)
			}
			if !ps.Verify(hash, tc.password) {
				t.Errorf("Verify() = false for %q", tc.password)
			}
		})
	}
}

func TestVerify_AlteredPassword(t *testing.T) {
	ps := newTestPasswordService()
	hash, _ := ps.Hash("the-real-password")

	for _, altered := range []string{"the-real-passwor", "the-real-password ", "The-real-password", ""} {
		if ps.Verify(hash, altered) {
			t.Errorf("Verify() = true for altered plaintext %q", altered)
		}
	}
}

func TestVerify_CorruptedDigest(t *testing.T) {
	ps := newTestPasswordService()
	hash, _ := ps.Hash("password")

	flipped := []byte(hash)
	if flipped[len(flipped)-5] == 'a' {
		flipped[len(flipped)-5] = 'b'
	} else {
		flipped[len(flipped)-5] = 'a'
	}

	corrupted := []string{
		"",
		"not-a-valid-bcrypt-hash",
		hash[:len(hash)-1],
		string(flipped),
		strings.Replace(hash, "$2a$", "$9x$", 1),
	}
	for _, digest := range corrupted {
		if ps.Verify(digest, "password") {
			t.Errorf("Verify() = true for corrupted digest %q", digest)
		}
	}
}
