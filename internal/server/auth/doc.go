// Package auth issues and validates session tokens.
//
// A token is an HS256 JWT carrying the user ID (sub), issue time (iat) and a
// session ID (jti). Tokens have no expiry: a token is valid exactly as long as
// its session row exists, so logout is a delete of that row.
package auth
