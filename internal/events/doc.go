// Package events defines the live-stream event types and the handler
// interfaces used to fan them out.
//
// Publishers emit events without knowing who consumes them. The primary
// components are:
// - Event: a typed stream payload (connected, heartbeat or activity)
// - EventHandler: interface for components that consume events
// - EventEmitter: interface for components that publish events
// - InMemoryEventEmitter: dispatches to in-process handlers
package events
