// Package delivery runs the background daemon that advances the delivered flag
// of queued notifications. Delivery means the notification has been handed to
// the polling consumer; agents still fetch their own mailboxes.
//
// At most one poll cycle runs at a time. A tick that fires while a cycle is
// still outstanding is skipped, never queued.
package delivery
