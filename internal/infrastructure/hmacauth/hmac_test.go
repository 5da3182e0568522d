package hmacauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateKeysAreRandomAndShort(t *testing.T) {
	auth := NewAuthenticator()

	pub1, sec1, err := auth.CreateKeys()
	require.NoError(t, err)
	pub2, sec2, err := auth.CreateKeys()
	require.NoError(t, err)

	assert.NotEqual(t, pub1, pub2)
	assert.NotEqual(t, sec1, sec2)
	assert.NotEqual(t, pub1, sec1)
	assert.LessOrEqual(t, len(pub1), 50)
	assert.LessOrEqual(t, len(sec1), 50)
}

func TestCreateContentDigest(t *testing.T) {
	auth := NewAuthenticator()

	assert.Empty(t, auth.CreateContentDigest(nil))
	assert.Empty(t, auth.CreateContentDigest([]byte{}))

	d1 := auth.CreateContentDigest([]byte("FetchFrom=2026-01-01"))
	d2 := auth.CreateContentDigest([]byte("FetchFrom=2026-01-01"))
	d3 := auth.CreateContentDigest([]byte("FetchFrom=2026-01-02"))

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}

func TestCreateMessageRepresentation(t *testing.T) {
	auth := NewAuthenticator()
	ts := "2026-03-01T12:00:00.0000000Z"

	repr := auth.CreateMessageRepresentation("POST", "digest", ts, "https://Shop.Example.com/Export/ProductData?a=%20b")
	require.NotEmpty(t, repr)

	// Deterministic for identical inputs.
	assert.Equal(t, repr, auth.CreateMessageRepresentation("POST", "digest", ts, "https://Shop.Example.com/Export/ProductData?a=%20b"))

	// URL is lower-cased and percent-decoded before signing, so equivalent
	// spellings produce the same representation.
	assert.Equal(t, repr, auth.CreateMessageRepresentation("post", "digest", ts, "https://shop.example.com/export/productdata?a= b"))

	// Any change to method, digest, timestamp or URL changes the result.
	assert.NotEqual(t, repr, auth.CreateMessageRepresentation("GET", "digest", ts, "https://shop.example.com/export/productdata?a= b"))
	assert.NotEqual(t, repr, auth.CreateMessageRepresentation("POST", "other", ts, "https://shop.example.com/export/productdata?a= b"))
	assert.NotEqual(t, repr, auth.CreateMessageRepresentation("POST", "digest", "2026-03-01T12:00:01.0000000Z", "https://shop.example.com/export/productdata?a= b"))
	assert.NotEqual(t, repr, auth.CreateMessageRepresentation("POST", "digest", ts, "https://shop.example.com/export/about"))

	// Mandatory parts missing yield an empty representation.
	assert.Empty(t, auth.CreateMessageRepresentation("", "digest", ts, "https://shop.example.com"))
	assert.Empty(t, auth.CreateMessageRepresentation("POST", "digest", "", "https://shop.example.com"))
	assert.Empty(t, auth.CreateMessageRepresentation("POST", "digest", ts, ""))
}

func TestCreateSignatureDeterministic(t *testing.T) {
	auth := NewAuthenticator()
	repr := auth.CreateMessageRepresentation("GET", "", "2026-03-01T12:00:00.0000000Z", "https://shop.example.com/export/about")

	sig1 := auth.CreateSignature("secret", repr)
	sig2 := auth.CreateSignature("secret", repr)
	other := auth.CreateSignature("different-secret", repr)

	require.NotEmpty(t, sig1)
	assert.Equal(t, sig1, sig2)
	assert.NotEqual(t, sig1, other)
	assert.True(t, auth.SignaturesEqual(sig1, sig2))
	assert.False(t, auth.SignaturesEqual(sig1, other))

	assert.Empty(t, auth.CreateSignature("", repr))
	assert.Empty(t, auth.CreateSignature("secret", ""))
}

func TestIsAuthorizationHeaderValid(t *testing.T) {
	auth := NewAuthenticator()
	sig := auth.CreateSignature("secret", "message")

	assert.True(t, auth.IsAuthorizationHeaderValid(SchemeConstant, sig))
	assert.False(t, auth.IsAuthorizationHeaderValid("Bearer", sig))
	assert.False(t, auth.IsAuthorizationHeaderValid(SchemeConstant, ""))
	assert.False(t, auth.IsAuthorizationHeaderValid(SchemeConstant, "not base64 !!!"))
}

func TestTimestampRoundTrip(t *testing.T) {
	auth := NewAuthenticator()
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456700, time.UTC)

	formatted := FormatTimestamp(now)
	parsed, err := auth.ParseTimestamp(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(now))

	_, err = auth.ParseTimestamp("01.03.2026 12:00")
	assert.Error(t, err)
}

func TestAuthResultWireValues(t *testing.T) {
	// The numeric ids travel in the AuthResultId header; spot-check the
	// ends and a middle value against the contract.
	assert.Equal(t, 0, int(Success))
	assert.Equal(t, 7, int(TimestampOutOfPeriod))
	assert.Equal(t, 8, int(TimestampOlderThanLastRequest))
	assert.Equal(t, 14, int(IncompatibleVersion))
	assert.Equal(t, "TimestampOlderThanLastRequest", TimestampOlderThanLastRequest.String())
	assert.Equal(t, "FailedForUnknownReason", AuthResult(99).String())
}
