package venue

import "errors"

var ErrInvalidArgument = errors.New("invalid argument")
