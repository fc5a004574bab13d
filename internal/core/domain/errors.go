package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTemporary      = errors.New("temporary failure")
	// ErrPrecondition marks programming errors such as projecting a record
	// whose classification forbids storage.
	ErrPrecondition = errors.New("precondition violated")
	// ErrBackend marks persistence failures that callers degrade to
	// "not stored" / "not found".
	ErrBackend = errors.New("storage backend failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
