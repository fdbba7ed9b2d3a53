package auth

import "net/http"

// FingerprintCookieName is the hardened cookie carrying the raw fingerprint.
// Never readable by JavaScript and never sent cross-site.
const FingerprintCookieName = "__Secure-Fgp"

// NewFingerprintCookie builds the Set-Cookie header value for a freshly
// minted fingerprint.
func NewFingerprintCookie(rawFingerprint string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     FingerprintCookieName,
		Value:    rawFingerprint,
		Path:     "/api",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}

// ClearFingerprintCookie builds the Set-Cookie header value that expires the
// fingerprint cookie immediately, for logout.
func ClearFingerprintCookie() *http.Cookie {
	return &http.Cookie{
		Name:     FingerprintCookieName,
		Value:    "",
		Path:     "/api",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   0,
	}
}
