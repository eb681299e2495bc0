package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced in API responses.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeDuplicateIdentity    = "DUPLICATE_IDENTITY"
	CodeSelfFollow           = "SELF_FOLLOW_NOT_ALLOWED"
	CodeAlreadyFollowing     = "ALREADY_FOLLOWING"
	CodeNotFollowing         = "NOT_FOLLOWING"
	CodeSelfLike             = "SELF_LIKE_NOT_ALLOWED"
	CodeAlreadyLiked         = "ALREADY_LIKED"
	CodeNotLiked             = "NOT_LIKED"
	CodeInvalidText          = "INVALID_TEXT"
)

// Domain errors. Compare with errors.Is; any AppError carrying the same code
// matches, so callers may return a customised message.
var (
	ErrDuplicateIdentity    = &AppError{Code: CodeDuplicateIdentity, Message: "Username or email already taken"}
	ErrNotFound             = &AppError{Code: CodeNotFound, Message: "Not found"}
	ErrUnauthorized         = &AppError{Code: CodeUnauthorized, Message: "Access unauthorized."}
	ErrAuthenticationFailed = &AppError{Code: CodeAuthenticationFailed, Message: "Invalid credentials"}
	ErrSelfFollowNotAllowed = &AppError{Code: CodeSelfFollow, Message: "You cannot follow yourself"}
	ErrAlreadyFollowing     = &AppError{Code: CodeAlreadyFollowing, Message: "You are already following this user"}
	ErrNotFollowing         = &AppError{Code: CodeNotFollowing, Message: "You are not following this user"}
	ErrSelfLikeNotAllowed   = &AppError{Code: CodeSelfLike, Message: "You cannot like your own message"}
	ErrAlreadyLiked         = &AppError{Code: CodeAlreadyLiked, Message: "You already like this message"}
	ErrNotLiked             = &AppError{Code: CodeNotLiked, Message: "You do not like this message"}
	ErrInvalidText          = &AppError{Code: CodeInvalidText, Message: "Message text must be between 1 and 140 characters"}
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation, CodeInvalidText, CodeSelfFollow, CodeSelfLike:
		return fiber.StatusBadRequest
	case CodeUnauthorized, CodeAuthenticationFailed:
		return fiber.StatusUnauthorized
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeDuplicateIdentity, CodeAlreadyFollowing, CodeNotFollowing, CodeAlreadyLiked, CodeNotLiked:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}

// Respond writes err using the status derived from its code.
func Respond(c *fiber.Ctx, err error) error {
	return RespondWithError(c, HTTPStatus(err), err)
}
