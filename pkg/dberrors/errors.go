package dberrors

import "errors"

// ErrClosed is returned by engines and map clients used after Close.
var ErrClosed = errors.New("logwal: closed")
