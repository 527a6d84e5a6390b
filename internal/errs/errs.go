package errs

import "github.com/pkg/errors"

// Локальные ошибки-инварианты: бросаются до сетевого вызова
// и на бэкенд не уходят. Проверять через errors.Is.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyTerminal   = errors.New("request is already terminal")
	ErrInvalidState      = errors.New("operation not allowed in current status")
	ErrDuplicateFeedback = errors.New("feedback already recorded for this request")

	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated: token cookie is missing")
)
