package auth

import "testing"

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcryptTestCost)

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := h.Verify(digest, "correct horse battery staple"); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}

	if err := h.Verify(digest, "wrong password"); err == nil {
		t.Error("Verify() expected error for wrong password, got nil")
	}
}

// bcryptTestCost keeps hashing fast in tests; production wiring uses
// bcrypt.DefaultCost via NewBcryptHasher(0).
const bcryptTestCost = 4
