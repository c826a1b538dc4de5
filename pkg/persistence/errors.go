package persistence

import "errors"

var (
	ErrAreaNotFound         = errors.New("area not found")
	ErrExecutionLogNotFound = errors.New("execution log not found")
)

func IsAreaNotFound(err error) bool {
	return errors.Is(err, ErrAreaNotFound)
}

func IsExecutionLogNotFound(err error) bool {
	return errors.Is(err, ErrExecutionLogNotFound)
}
