package web

import "errors"

var (
	ErrPanic       = errors.New("recovered from panic")
	ErrInvalidPath = errors.New("invalid path parameter")
)
