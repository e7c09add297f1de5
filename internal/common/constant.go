// Package common contains shared constants and sentinel errors used across
// contractsign components.
package common

// OperatorTokenHeaderName is the gRPC metadata key used to carry the
// operator bearer token on administrative calls.
const OperatorTokenHeaderName = "operator_token"

// TokenParamName is the query parameter / form field carrying the client
// access token.
const TokenParamName = "token"
