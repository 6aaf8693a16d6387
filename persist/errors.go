package persist

import "errors"

var (
	ErrEncode    = errors.New("unable to encode state")
	ErrDecode    = errors.New("unable to decode state")
	ErrTransform = errors.New("state transform panicked")
)
