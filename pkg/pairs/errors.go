package pairs

import "errors"

var (
	ErrDataUnavailable      = errors.New("history data unavailable")
	ErrInvalidHistory       = errors.New("invalid history")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
