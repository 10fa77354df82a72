package logmap

import "errors"

var (
	ErrConnect = errors.New("logmap: connect failed")
	ErrInsert  = errors.New("logmap: insert failed")
	ErrGet     = errors.New("logmap: get failed")
	ErrRemove  = errors.New("logmap: remove failed")
	ErrQuery   = errors.New("logmap: query failed")

	ErrBadAddress = errors.New("logmap: bad address")
)
