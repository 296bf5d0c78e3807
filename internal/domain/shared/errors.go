package shared

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the group and billing contexts
const (
	CodeGroupNotFound      = "GROUP_NOT_FOUND"
	CodeGroupExists        = "GROUP_EXISTS"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnsupportedPricing = "UNSUPPORTED_PRICING"
	CodePartialFailure     = "PARTIAL_FAILURE"
	CodeMetricsUnavailable = "METRICS_UNAVAILABLE"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeConflict, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrMetricsUnavailable  = NewDomainError(CodeMetricsUnavailable, "Usage metrics source unavailable")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)

// NewGroupNotFoundError creates a GROUP_NOT_FOUND error for the given group reference
func NewGroupNotFoundError(ref string) *DomainError {
	return NewDomainError(CodeGroupNotFound, fmt.Sprintf("Group not found: %s", ref))
}

// NewGroupExistsError creates a GROUP_EXISTS error for the given group name
func NewGroupExistsError(name string) *DomainError {
	return NewDomainError(CodeGroupExists, fmt.Sprintf("Group %s exists", name))
}

// NewValidationError creates an INVALID_INPUT error with the given message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeInvalidInput, message)
}

// NewUnsupportedPricingError creates an UNSUPPORTED_PRICING error for a
// currency/availability combination that has no rate table entry
func NewUnsupportedPricingError(currency, availability string) *DomainError {
	if availability == "" {
		return NewDomainError(CodeUnsupportedPricing, fmt.Sprintf("Unsupported currency: %s", currency))
	}
	return NewDomainError(CodeUnsupportedPricing,
		fmt.Sprintf("Unsupported pricing for currency %s with %s availability", currency, availability))
}

// PartialFailureError is returned by bulk operations that attempted every item
// and completed with some failures. It carries the identifiers that failed.
type PartialFailureError struct {
	Op     string
	Failed []string
	Errs   []error
}

// Error implements the error interface
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s completed with %d failure(s): %s", e.Op, len(e.Failed), strings.Join(e.Failed, ", "))
}

// Unwrap exposes the collected item errors
func (e *PartialFailureError) Unwrap() []error {
	return e.Errs
}

// NewPartialFailureError creates a PARTIAL_FAILURE error for a bulk operation
func NewPartialFailureError(op string, failed []string, errs []error) *PartialFailureError {
	return &PartialFailureError{Op: op, Failed: failed, Errs: errs}
}

// IsCode reports whether err is a DomainError carrying the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsGroupNotFound reports whether err is a group lookup miss
func IsGroupNotFound(err error) bool {
	return IsCode(err, CodeGroupNotFound)
}

// IsGroupExists reports whether err is a group name conflict
func IsGroupExists(err error) bool {
	return IsCode(err, CodeGroupExists)
}

// IsValidation reports whether err is an input validation failure
func IsValidation(err error) bool {
	return IsCode(err, CodeInvalidInput)
}

// IsUnsupportedPricing reports whether err is a pricing table lookup miss
func IsUnsupportedPricing(err error) bool {
	return IsCode(err, CodeUnsupportedPricing)
}

// IsPartialFailure reports whether err is a bulk operation partial failure
func IsPartialFailure(err error) bool {
	var pe *PartialFailureError
	return errors.As(err, &pe)
}
