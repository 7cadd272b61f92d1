package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// =============================================================================
// Domain-Specific Error Types
// =============================================================================

// ErrNotFound indicates a requested resource does not exist.
type ErrNotFound struct {
	Resource string
	Name     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Name)
}

// ErrInvalidArgument indicates invalid input from the client.
type ErrInvalidArgument struct {
	Field   string
	Message string
}

func (e *ErrInvalidArgument) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

// ErrDimensionMismatch indicates two vectors (or a vector and the VOC set)
// do not have the same number of elements.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrOutOfRange indicates a VOC level outside the unit interval.
type ErrOutOfRange struct {
	Name  string
	Value float64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("level for %s out of range [0,1]: %g", e.Name, e.Value)
}

// ErrEmptyStore indicates a best-match selection over zero signatures.
type ErrEmptyStore struct {
	Operation string
}

func (e *ErrEmptyStore) Error() string {
	return fmt.Sprintf("%s: signature store is empty", e.Operation)
}

// ErrInternal indicates an unexpected internal error.
type ErrInternal struct {
	Operation string
	Cause     error
}

func (e *ErrInternal) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("internal error during %s", e.Operation)
}

func (e *ErrInternal) Unwrap() error {
	return e.Cause
}

// =============================================================================
// Error Constructors
// =============================================================================

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource, name string) error {
	return &ErrNotFound{Resource: resource, Name: name}
}

// NewInvalidArgumentError creates an invalid argument error.
func NewInvalidArgumentError(field, message string) error {
	return &ErrInvalidArgument{Field: field, Message: message}
}

// NewDimensionMismatchError creates a dimension mismatch error.
func NewDimensionMismatchError(expected, actual int) error {
	return &ErrDimensionMismatch{Expected: expected, Actual: actual}
}

// NewOutOfRangeError creates an out of range error.
func NewOutOfRangeError(name string, value float64) error {
	return &ErrOutOfRange{Name: name, Value: value}
}

// NewEmptyStoreError creates an empty store error.
func NewEmptyStoreError(operation string) error {
	return &ErrEmptyStore{Operation: operation}
}

// NewInternalError creates an internal error.
func NewInternalError(operation string, cause error) error {
	return &ErrInternal{Operation: operation, Cause: cause}
}

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	var (
		invalidArgErr  *ErrInvalidArgument
		dimMismatchErr *ErrDimensionMismatch
		outOfRangeErr  *ErrOutOfRange
	)
	return errors.As(err, &invalidArgErr) ||
		errors.As(err, &dimMismatchErr) ||
		errors.As(err, &outOfRangeErr)
}

// =============================================================================
// Transport Status Mapping
// =============================================================================

// ToGRPCStatus converts a domain error to a gRPC status error with appropriate code.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}

	// Already a gRPC status error
	if _, ok := status.FromError(err); ok {
		return err
	}
	if isContextError(err) {
		return status.FromContextError(err).Err()
	}

	var (
		notFoundErr   *ErrNotFound
		emptyStoreErr *ErrEmptyStore
	)

	switch {
	case IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &notFoundErr):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &emptyStoreErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// StatusClientClosedRequest is reported when the caller went away before the
// request finished. net/http has no constant for it.
const StatusClientClosedRequest = 499

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// HTTPStatus returns the HTTP status code for a domain error.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		notFoundErr   *ErrNotFound
		emptyStoreErr *ErrEmptyStore
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &emptyStoreErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
