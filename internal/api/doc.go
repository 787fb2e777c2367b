// Package api exposes the dashboard's HTTP surface: activity publishing, the
// live event stream, agent mailboxes and task subscriptions. Handlers decode
// and validate requests, call the services and translate their errors into
// status codes and safe messages.
package api
