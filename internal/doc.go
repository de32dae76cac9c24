// Package internal documents the campus client internals.
//
// The internal tree is organized by responsibility:
// - session: the credential and identity store every command goes through
// - gateway: the typed HTTP client for the events API
// - domain: events, users and identifiers shared by client and stub server
// - storage: durable credential backends (file, SQLite, Redis, memory)
// - stubserver: in-memory events API for development and tests
// - auth, audit, config, metrics, sanitize, telemetry, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
