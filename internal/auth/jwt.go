// Package auth mints and verifies the bearer token + fingerprint-cookie pair
// that binds an access token to the browser session that received it.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrTokenExpired    = errors.New("auth: token expired")
	ErrMissingClaims   = errors.New("auth: missing required claims")
	ErrFingerprintMiss = errors.New("auth: fingerprint mismatch")
)

// fingerprintByteLength is the number of CSPRNG bytes minted per login,
// per spec: 50 random bytes, hex-encoded as the cookie value.
const fingerprintByteLength = 50

// Claims is the structure embedded in every token this package mints.
type Claims struct {
	jwt.Claims
	FgpHash string `json:"fgpHash"`
}

// TokenIssuer mints and verifies HS256 JWTs carrying a fingerprint hash
// claim. The secret must be at least 32 bytes once decoded.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. secret is the raw (already
// base64-decoded) signing key.
func NewTokenIssuer(secret []byte, issuer string, expiration time.Duration) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth: jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	return &TokenIssuer{secret: secret, issuer: issuer, expiration: expiration}, nil
}

// NewFingerprint generates a new random fingerprint: the raw hex value to
// place in the cookie, and the SHA-256 hex hash to embed in the token.
func NewFingerprint() (raw string, hash string, err error) {
	buf := make([]byte, fingerprintByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generate fingerprint: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashFingerprint(raw), nil
}

// HashFingerprint returns the lowercase hex SHA-256 digest of raw.
func HashFingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Mint signs a new token for subject, binding it to fgpHash.
func (i *TokenIssuer) Mint(subject, fgpHash string) (string, error) {
	now := time.Now()
	claims := Claims{
		Claims: jwt.Claims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(now.Add(i.expiration)),
		},
		FgpHash: fgpHash,
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: i.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("auth: create signer: %w", err)
	}

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify checks signature, issuer, and expiration, then returns the claims.
// It does NOT check the fingerprint binding; call VerifyFingerprint with the
// cookie value for that.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseSigned(tokenString, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims Claims
	if err := token.Claims(i.secret, &claims); err != nil {
		return nil, fmt.Errorf("%w: signature verification failed", ErrInvalidToken)
	}

	if claims.Expiry == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMissingClaims)
	}
	if claims.Expiry.Time().Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	if claims.Issuer != i.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMissingClaims)
	}
	if claims.FgpHash == "" {
		return nil, fmt.Errorf("%w: missing fgpHash claim", ErrMissingClaims)
	}

	return &claims, nil
}

// VerifyFingerprint compares rawFingerprint's hash against the claim in
// constant time, per the spec's boundary property: byte-level comparison
// that does not leak timing information proportional to a partial match.
func VerifyFingerprint(claims *Claims, rawFingerprint string) error {
	expected := []byte(claims.FgpHash)
	actual := []byte(HashFingerprint(rawFingerprint))

	if len(expected) != len(actual) || subtle.ConstantTimeCompare(expected, actual) != 1 {
		return ErrFingerprintMiss
	}
	return nil
}
