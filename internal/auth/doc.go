// Package auth issues and verifies the signed identity tokens handed to chat
// clients after register or login.
//
// Tokens are HS256 JWTs signed with a single process-wide secret. The payload
// is readable by anyone holding the token; only its integrity is protected.
// Tokens carry no expiry and stay valid for as long as the secret does.
package auth
