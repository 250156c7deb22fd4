// Package users is the credential store behind registration and login.
//
// A Store persists users keyed by username and is the single serialization
// point for username uniqueness: concurrent Create calls for the same name
// see exactly one success. Passwords are bcrypt-hashed before they reach any
// backend and the plaintext is never kept.
//
// Three backends are provided: an in-memory map for development and tests,
// PostgreSQL through pgx, and SQLite through modernc.org/sqlite. Open picks
// one from a DSN.
package users
