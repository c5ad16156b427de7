package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes used across the miner
const (
	CodeTransport        = "TRANSPORT"
	CodeProtocol         = "PROTOCOL"
	CodeSignatureInvalid = "SIGNATURE_INVALID"
	CodeStaleTarget      = "STALE_TARGET"
	CodeStorageTransient = "STORAGE_TRANSIENT"
	CodeConfig           = "CONFIG"
	CodeWallet           = "WALLET"
)

// AppError represents an application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code, so sentinels compare with errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping another error
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Transport wraps a connect/timeout/refused failure
func Transport(message string, err error) *AppError {
	return Wrap(CodeTransport, message, err)
}

// Protocol reports a malformed or unexpected reply
func Protocol(format string, v ...any) *AppError {
	return New(CodeProtocol, fmt.Sprintf(format, v...))
}

// HasCode reports whether any AppError in the chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		var ae *AppError
		if !stderrors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Err
	}
	return false
}
