package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/store"
)

// Sentinel errors returned by the services. They alias the store sentinels so
// callers can match with errors.Is against either package.
var (
	// ErrThreadNotFound indicates the task thread does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrThreadNotFound = store.ErrThreadNotFound

	// ErrIdentityNotFound indicates the agent or person does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrIdentityNotFound = store.ErrIdentityNotFound

	// ErrNotificationNotFound indicates the notification does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrNotificationNotFound = store.ErrNotificationNotFound

	// ErrNilDependency is returned by constructors given a nil collaborator.
	ErrNilDependency = errors.New("required dependency is nil")
)

// ServiceError wraps unexpected failures with the service and operation that hit them.
type ServiceError struct {
	// Service is the component that failed (e.g., "notification_queue")
	Service string
	// Operation is the operation that failed (e.g., "enqueue", "mark_delivered")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Validation and not-found errors are returned as they are, without wrapping.
func NewServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	switch {
	case errors.Is(err, store.ErrThreadNotFound):
		return ErrThreadNotFound
	case errors.Is(err, store.ErrIdentityNotFound):
		return ErrIdentityNotFound
	case errors.Is(err, store.ErrNotificationNotFound):
		return ErrNotificationNotFound
	}

	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

func nilDependency(service, name string) error {
	return &ServiceError{
		Service:   service,
		Operation: "create_service",
		Message:   name + " cannot be nil",
		Err:       ErrNilDependency,
	}
}
