// Package auth implements the session token codec and cookie transport.
//
// A login issues two independent HS256-signed JWTs that share a subject and
// lifetime but are never merged into one artifact:
//
//   - The access token carries only the API role claim and travels in an
//     HTTP-only cookie scoped to the API path. Page scripts can never read it.
//   - The identity token carries profile claims (display name, avatar, email)
//     in a script-readable cookie so the client can render the signed-in user
//     without ever holding an authorization credential.
//
// There is no revocation list. A leaked token is bounded only by the fixed
// expiry horizon and the HTTP-only transport of the access token.
package auth
