// Package service contains the board's use cases: thread subscriptions, the
// notification queue, activity publishing with mention fan-out, and the comment
// and assignment hooks that feed notifications.
//
// Services receive their store dependencies through constructor injection and
// depend only on the interfaces in internal/store, never on a specific database.
//
// Error handling:
//   - Validation failures surface as *domain.ValidationError.
//   - Missing entities surface as the store's not-found sentinels, unwrapped.
//   - Everything else is wrapped in *ServiceError and treated as a persistence
//     failure by the API layer.
//
// Best-effort paths never fail their caller: mention resolution, bulk fan-out
// and broadcast failures are logged and swallowed.
package service
