// Package redis relays live activity events between server instances over
// Redis Pub/Sub. Each instance publishes what it emits and forwards what it
// receives into its own process-local broadcast hub.
//
// Pub/Sub is at-most-once: an instance that is disconnected while an event is
// published never sees it.
package redis
