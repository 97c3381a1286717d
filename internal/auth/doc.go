// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package auth implements credentials-based authentication for Parley.

Passwords are hashed with bcrypt. Sessions are stateless JWTs signed
with HMAC-SHA256, delivered both in the response body and as an
HTTP-only cookie. Logout is implemented by recording the token's jti
in a BadgerDB-backed revocation store with a TTL matching the token's
remaining lifetime, so revocations expire on their own.
*/
package auth
