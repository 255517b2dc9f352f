package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound              ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden             ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest            ErrorCode = "BAD_REQUEST"
	ErrCodeConflict              ErrorCode = "CONFLICT"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation            ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError         ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidTransition     ErrorCode = "INVALID_TRANSITION"
	ErrCodeCapacityExceeded      ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeDuplicateAssignment   ErrorCode = "DUPLICATE_ASSIGNMENT"
	ErrCodeStaleState            ErrorCode = "STALE_STATE"
	ErrCodeRevisionWindowExpired ErrorCode = "REVISION_WINDOW_EXPIRED"
	ErrCodeRateLimited           ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeCapacityExceeded,
		ErrCodeDuplicateAssignment, ErrCodeStaleState:
		return http.StatusConflict
	case ErrCodeRevisionWindowExpired:
		return http.StatusGone
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или ErrCodeInternal для неизвестных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return IsCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return IsCode(err, ErrCodeValidation)
}

func IsStaleState(err error) bool {
	return IsCode(err, ErrCodeStaleState)
}

var (
	ErrProposalNotFound   = New(ErrCodeNotFound, "заявка не найдена")
	ErrEvaluatorNotFound  = New(ErrCodeNotFound, "эксперт не найден")
	ErrAssignmentNotFound = New(ErrCodeNotFound, "назначение эксперта не найдено")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrStaleState         = New(ErrCodeStaleState, "заявка изменилась с момента последнего чтения, обновите данные и повторите")
	ErrRevisionExpired    = New(ErrCodeRevisionWindowExpired, "срок доработки истёк")
	ErrAlreadyRated       = New(ErrCodeConflict, "оценка по этой версии уже отправлена")
)
