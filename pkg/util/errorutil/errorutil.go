package errorutil

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by the interaction router and the HTTP layer.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeWrongContext      = "WRONG_CONTEXT"
	CodeTooSoon           = "TOO_SOON"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeCreationFailed    = "CREATION_FAILED"
	CodeCollectionFailed  = "COLLECTION_FAILED"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors. Message is safe to show to a
// Discord user or HTTP client.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinel comparisons work across wrapped instances.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrUnauthorized      = &DomainError{Code: CodeUnauthorized}
	ErrWrongContext      = &DomainError{Code: CodeWrongContext}
	ErrTooSoon           = &DomainError{Code: CodeTooSoon}
	ErrInsufficientFunds = &DomainError{Code: CodeInsufficientFunds}
	ErrCreationFailed    = &DomainError{Code: CodeCreationFailed}
	ErrCollectionFailed  = &DomainError{Code: CodeCollectionFailed}
	ErrMalformedResponse = &DomainError{Code: CodeMalformedResponse}
)

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewWrongContext(message string) error {
	return NewDomainError(CodeWrongContext, message, http.StatusConflict, nil)
}

// NewTooSoon reports a cooldown; the wait is rounded up to whole hours.
func NewTooSoon(remaining time.Duration) error {
	hours := int(math.Ceil(remaining.Hours()))
	return &DomainError{
		Code:       CodeTooSoon,
		Message:    fmt.Sprintf("You have already claimed your daily reward. Please wait %d hours before claiming again.", hours),
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]any{"hours_remaining": hours},
	}
}

func NewInsufficientFunds(balance, amount int64) error {
	return &DomainError{
		Code:       CodeInsufficientFunds,
		Message:    "The balance is too low for this removal.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"balance": balance, "amount": amount},
	}
}

func NewCreationError(err error) error {
	return &DomainError{
		Code:       CodeCreationFailed,
		Message:    "Error while creating your ticket. Please try again later.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewCollectionError(err error) error {
	return &DomainError{
		Code:       CodeCollectionFailed,
		Message:    "failed to collect channel history",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewMalformedResponse(source string, details map[string]any) error {
	return &DomainError{
		Code:       CodeMalformedResponse,
		Message:    fmt.Sprintf("malformed response from %s", source),
		HTTPStatus: http.StatusBadGateway,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HoursRemaining extracts the cooldown hours from a TOO_SOON error.
func HoursRemaining(err error) (int, bool) {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != CodeTooSoon {
		return 0, false
	}
	hours, ok := domainErr.Details["hours_remaining"].(int)
	return hours, ok
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
