// Package session serializes access to individual negotiation
// sessions. Each validation decision depends on, and invalidates, the
// previously persisted state, so two requests for the same session
// must never run concurrently. Requests for different sessions are
// fully independent.
package session
