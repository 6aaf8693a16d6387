package storage

import "errors"

var (
	ErrGet    = errors.New("unable to retrieve data from state storage")
	ErrSet    = errors.New("unable to store data in state storage")
	ErrRemove = errors.New("unable to remove data from state storage")
)
