package medications

import (
	"errors"
	"fmt"
)

// Code es la taxonomía estable de errores que ve el caller.
type Code string

const (
	CodeInitFailed           Code = "INIT_FAILED"
	CodeConnectionFailed     Code = "CONNECTION_FAILED"
	CodeQueryFailed          Code = "QUERY_FAILED"
	CodeTransactionFailed    Code = "TRANSACTION_FAILED"
	CodeConstraintViolation  Code = "CONSTRAINT_VIOLATION"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodePlatformNotSupported Code = "PLATFORM_NOT_SUPPORTED"
)

// Error es un error con código estable + mensaje humano.
// Cruza el boundary del store siempre clasificado.
type Error struct {
	Code    Code
	Message string
	Err     error // causa de bajo nivel, opcional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is permite errors.Is contra otro *Error por código.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func NewErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WrapError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Classify normaliza cualquier error a la taxonomía.
// Si ya viene clasificado lo respeta; si no, default QUERY_FAILED.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeQueryFailed, Message: "storage operation failed", Err: err}
}

// CodeOf devuelve el código del error, clasificando si hace falta.
func CodeOf(err error) Code {
	e := Classify(err)
	if e == nil {
		return ""
	}
	return e.Code
}

// IsTransient indica si vale la pena reintentar: fallas genéricas de
// query/transacción y fallas de conexión. Validación, not-found y
// violaciones de constraint son permanentes.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeQueryFailed, CodeConnectionFailed, CodeTransactionFailed:
		return true
	default:
		return false
	}
}
