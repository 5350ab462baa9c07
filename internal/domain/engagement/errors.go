package engagement

import "errors"

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

func IsErrBadRequest(err error) bool   { return errors.Is(err, ErrBadRequest) }
func IsErrNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsErrUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
