package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable failure reasons returned in error responses.
const (
	ReasonInvalidRequest       = "INVALID_REQUEST"
	ReasonEmptyCart            = "EMPTY_CART"
	ReasonMissingContactInfo   = "MISSING_CONTACT_INFO"
	ReasonInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	ReasonOutOfStock           = "OUT_OF_STOCK"
	ReasonInsufficientStock    = "INSUFFICIENT_STOCK"
	ReasonCartInactive         = "CART_INACTIVE"
	ReasonDuplicateActiveCart  = "DUPLICATE_ACTIVE_CART"
	ReasonCouponInvalid        = "COUPON_INVALID"
	ReasonCouponExhausted      = "COUPON_EXHAUSTED"
	ReasonOrderNotPending      = "ORDER_NOT_PENDING"
	ReasonInvalidTransition    = "INVALID_TRANSITION"
	ReasonSettlementFailed     = "SETTLEMENT_FAILED"
	ReasonPaymentInProgress    = "PAYMENT_IN_PROGRESS"
	ReasonRequestInProgress    = "REQUEST_IN_PROGRESS"
	ReasonProductNotFound      = "PRODUCT_NOT_FOUND"
	ReasonCartItemNotFound     = "CART_ITEM_NOT_FOUND"
	ReasonCouponNotFound       = "COUPON_NOT_FOUND"
	ReasonOrderNotFound        = "ORDER_NOT_FOUND"
	ReasonInvalidSignature     = "INVALID_SIGNATURE"
	ReasonUnauthorized         = "UNAUTHORIZED"
	ReasonGatewayError         = "GATEWAY_ERROR"
	ReasonInternal             = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, reason, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// ValidationError creates a 400 error for missing or malformed input.
func ValidationError(reason, message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, reason, message, err)
}

// ConflictError creates a 409 error the caller can fix by adjusting or retrying.
func ConflictError(reason, message string, err error) *AppError {
	return NewAppError(http.StatusConflict, reason, message, err)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(reason, message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, reason, message, err)
}

// AuthenticityError creates a 403 error for callbacks that fail verification.
func AuthenticityError(message string, err error) *AppError {
	return NewAppError(http.StatusForbidden, ReasonInvalidSignature, message, err)
}

// UnauthorizedError creates a 401 Unauthorized error
func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(http.StatusUnauthorized, ReasonUnauthorized, message, err)
}

// DependencyError creates a 502 error for an unreachable or misbehaving gateway.
func DependencyError(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, ReasonGatewayError, message, err)
}

// InternalError creates a 500 error for storage and other unexpected failures.
func InternalError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, ReasonInternal, message, err)
}

// GetAppError returns the AppError anywhere in err's chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// HasReason checks whether err carries the given reason.
func HasReason(err error, reason string) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Reason == reason
	}
	return false
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == http.StatusNotFound
	}
	return false
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == http.StatusConflict
	}
	return false
}
