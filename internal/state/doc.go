// Package state holds the daemon's shared application state and fans every
// change out to registered observers.
//
// Observers subscribe for a buffered channel of messages. Each broadcast
// carries the event type, an event-specific payload, and a full snapshot of
// the application state, so an observer can always render from the latest
// message alone and a new observer needs no catch-up protocol beyond the
// initial full_state message.
//
// Sends never block the broadcaster: when an observer's buffer is full the
// message is dropped for that observer and logged once. The full snapshot on
// the next delivered message covers the gap.
package state
