package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes and verifies passwords. Policy parameters (cost,
// rotation) are an external collaborator concern; this package supplies a
// sensible default implementation.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashed, password string) error
}

// BcryptHasher is the default PasswordHasher, backed by golang.org/x/crypto/bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher constructs a BcryptHasher. cost <= 0 uses bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt digest of password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify returns nil if password matches hashed, or bcrypt.ErrMismatchedHashAndPassword.
func (h *BcryptHasher) Verify(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}

var _ PasswordHasher = (*BcryptHasher)(nil)
