// Package common contains shared constants and sentinel errors used across
// memorylane components.
package common

// AccessTokenHeaderName is the HTTP header carrying the bearer access token.
const AccessTokenHeaderName = "Authorization"

// AdminKeyHeaderName is the gRPC metadata key used to carry the admin API key
// on outbound admin requests.
const AdminKeyHeaderName = "admin_api_key"
