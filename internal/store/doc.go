// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying relational store from the
// notification, subscription and broadcast logic, which stays independent
// of the database technology behind it.
package store
