// Package hmacauth implements the keyed request authentication protocol the
// connector peers use: canonical message representations signed with
// HMAC-SHA256, ISO-8601 timestamps and a custom header set.
package hmacauth

// ConnectorVersion is the numeric protocol version exchanged in the version
// header. Peers with a different major version are flagged as incompatible.
const ConnectorVersion = 3

// DefaultValidMinutes is the clock-skew window applied when no explicit
// period is configured.
const DefaultValidMinutes = 15

// SchemeConstant is both the Authorization scheme and the WWW-Authenticate
// challenge value.
const SchemeConstant = "SmNetShopConnectorHmac1"

// headerPrefix avoids collisions with standard headers, see RFC 6648.
const headerPrefix = "Sm-ShopConnector-"

// Wire header names.
const (
	HeaderDate              = headerPrefix + "Date"
	HeaderPublicKey         = headerPrefix + "PublicKey"
	HeaderVersion           = headerPrefix + "Version"
	HeaderAuthResultID      = headerPrefix + "AuthResultId"
	HeaderAuthResultDesc    = headerPrefix + "AuthResultDesc"
	HeaderErrorMessageShort = headerPrefix + "ErrorMessageShort"
	HeaderCategory          = headerPrefix + "Category"
	HeaderProduct           = headerPrefix + "Product"
	HeaderRequestCount      = headerPrefix + "RequestCount"
	HeaderLastRequest       = headerPrefix + "LastRequest"
	HeaderLastProductCall   = headerPrefix + "LastProductCall"
)

// AuthResult enumerates authentication outcomes. The numeric values are part
// of the wire contract (AuthResultId header) and must not be reordered.
type AuthResult int

const (
	Success AuthResult = iota
	FailedForUnknownReason
	ConnectorUnavailable
	ExportDeactivated
	InvalidAuthorizationHeader
	InvalidSignature
	InvalidTimestamp
	TimestampOutOfPeriod
	TimestampOlderThanLastRequest
	MissingMessageRepresentationParameter
	ContentDigestNotMatching
	ConnectionUnknown
	ConnectionDisabled
	ConnectionInvalid
	IncompatibleVersion
)

var authResultNames = map[AuthResult]string{
	Success:                               "Success",
	FailedForUnknownReason:                "FailedForUnknownReason",
	ConnectorUnavailable:                  "ConnectorUnavailable",
	ExportDeactivated:                     "ExportDeactivated",
	InvalidAuthorizationHeader:            "InvalidAuthorizationHeader",
	InvalidSignature:                      "InvalidSignature",
	InvalidTimestamp:                      "InvalidTimestamp",
	TimestampOutOfPeriod:                  "TimestampOutOfPeriod",
	TimestampOlderThanLastRequest:         "TimestampOlderThanLastRequest",
	MissingMessageRepresentationParameter: "MissingMessageRepresentationParameter",
	ContentDigestNotMatching:              "ContentDigestNotMatching",
	ConnectionUnknown:                     "ConnectionUnknown",
	ConnectionDisabled:                    "ConnectionDisabled",
	ConnectionInvalid:                     "ConnectionInvalid",
	IncompatibleVersion:                   "IncompatibleVersion",
}

func (r AuthResult) String() string {
	if name, ok := authResultNames[r]; ok {
		return name
	}
	return "FailedForUnknownReason"
}
