// Package apperr определяет таксономию ошибок, которую сервисы отдают наружу.
//
// Каждая ошибка на границе сервисов имеет ровно один Kind. HTTP-слой
// выбирает код ответа только по Kind и никогда не показывает клиенту
// внутренние причины.
package apperr

import (
	"errors"
	"net/http"
)

// Kind вид ошибки.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindPasswordMismatch
	KindDuplicateEmail
	KindInvalidCredentials
	KindInvalidToken
	KindTokenExpired
	KindStorageUnavailable
	KindUserNotFound
	KindForbidden
	KindUsageExceeded
)

var kindNames = map[Kind]string{
	KindValidation:         "validation_error",
	KindPasswordMismatch:   "password_mismatch",
	KindDuplicateEmail:     "duplicate_email",
	KindInvalidCredentials: "invalid_credentials",
	KindInvalidToken:       "invalid_token",
	KindTokenExpired:       "token_expired",
	KindStorageUnavailable: "service_unavailable",
	KindUserNotFound:       "user_not_found",
	KindForbidden:          "forbidden",
	KindUsageExceeded:      "usage_exceeded",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error ошибка с видом и сообщением, безопасным для показа клиенту.
type Error struct {
	Kind    Kind
	Message string
	Err     error // внутренняя причина, только для логов
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по виду через errors.Is.
// Несовпадение паролей считается частным случаем ошибки валидации.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindValidation && e.Kind == KindPasswordMismatch
}

// Sentinel-значения для errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrPasswordMismatch   = &Error{Kind: KindPasswordMismatch}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrUserNotFound       = &Error{Kind: KindUserNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrUsageExceeded      = &Error{Kind: KindUsageExceeded}
)

// Сообщения для ошибок, детали которых нельзя раскрывать.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgInvalidToken       = "invalid token"
	MsgTokenExpired       = "token expired"
	MsgUnavailable        = "service temporarily unavailable, please retry later"
)

// New создаёт ошибку заданного вида.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт ошибку заданного вида, сохраняя причину для логов.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Unavailable ошибка недоступности хранилищ с обобщённым сообщением.
func Unavailable(err error) *Error {
	return Wrap(KindStorageUnavailable, MsgUnavailable, err)
}

// KindOf возвращает вид ошибки. Неклассифицированные ошибки считаются недоступностью сервиса.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageUnavailable
}

// Message возвращает сообщение для клиента.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgUnavailable
}

// HTTPStatus HTTP-код для вида ошибки.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindPasswordMismatch:
		return http.StatusBadRequest
	case KindDuplicateEmail:
		return http.StatusConflict
	case KindInvalidCredentials, KindInvalidToken, KindTokenExpired, KindUserNotFound:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUsageExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}
