package hmacauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// keyBytes yields base64 keys that fit the 50 character storage columns.
const keyBytes = 24

// Authenticator builds and verifies the canonical request signatures. It is
// stateless; one instance can be shared freely.
type Authenticator struct{}

// NewAuthenticator returns a ready to use Authenticator.
func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

// CreateKeys generates a fresh random public/secret key pair.
func (a *Authenticator) CreateKeys() (publicKey, secretKey string, err error) {
	publicKey, err = randomKey()
	if err != nil {
		return "", "", err
	}
	secretKey, err = randomKey()
	if err != nil {
		return "", "", err
	}
	return publicKey, secretKey, nil
}

func randomKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateContentDigest hashes the raw request body. An empty body yields an
// empty digest, by contract.
func (a *Authenticator) CreateContentDigest(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// CreateMessageRepresentation builds the canonical string that gets signed:
// upper-cased HTTP method, body digest, the ISO timestamp exactly as
// transmitted, and the lower-cased percent-decoded absolute URL, joined by
// newlines. Any missing mandatory part yields an empty representation,
// which callers must treat as a failure.
func (a *Authenticator) CreateMessageRepresentation(method, contentDigest, timestamp, rawURL string) string {
	if method == "" || timestamp == "" || rawURL == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(rawURL)
	if err != nil {
		decoded = rawURL
	}
	return strings.Join([]string{
		strings.ToUpper(method),
		contentDigest,
		timestamp,
		strings.ToLower(decoded),
	}, "\n")
}

// CreateSignature signs the canonical representation with the secret key.
func (a *Authenticator) CreateSignature(secretKey, messageRepresentation string) string {
	if secretKey == "" || messageRepresentation == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(messageRepresentation))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignaturesEqual compares two signatures in constant time.
func (a *Authenticator) SignaturesEqual(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// IsAuthorizationHeaderValid checks the structural shape of the already
// split Authorization header: correct scheme and a non-empty base64
// signature.
func (a *Authenticator) IsAuthorizationHeaderValid(scheme, signature string) bool {
	if scheme != SchemeConstant || signature == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(signature)
	return err == nil
}

// ParseTimestamp parses the ISO-8601 UTC timestamp carried in the date
// header.
func (a *Authenticator) ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTimestamp renders a timestamp the way the date header expects it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.0000000Z07:00")
}
