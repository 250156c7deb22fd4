// Package server implements the HTTP and WebSocket surface of the presence
// chat service.
//
// The implementation is organized into specialized files for configuration,
// the connection hub and its presence broadcasts, clients, auth handlers,
// routing and middleware to keep the codebase maintainable and testable as
// the project grows.
package server
