// Package state provides a process-wide container for shared application
// values, keyed by type. Handlers and extractors look values up by the type
// they declare; a missing registration surfaces as an internal
// misconfiguration error rather than a client error.
package state
