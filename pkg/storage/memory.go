package storage

import (
	"sync/atomic"

	"logwal/pkg/dberrors"

	"github.com/zhangyunhao116/skipmap"
)

type orderedMap = skipmap.FuncMap[int64, []byte]

// Memory keeps everything in a concurrent skip list. Contents do not
// survive Close.
type Memory struct {
	m      *orderedMap
	closed atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{
		m: skipmap.NewFunc[int64, []byte](func(a, b int64) bool {
			return a < b
		}),
	}
}

func (s *Memory) Insert(key int64, value []byte) error {
	if s.closed.Load() {
		return dberrors.ErrClosed
	}
	s.m.Store(key, clone(value))
	return nil
}

func (s *Memory) Get(key int64) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, dberrors.ErrClosed
	}
	v, ok := s.m.Load(key)
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *Memory) Remove(key int64) error {
	if s.closed.Load() {
		return dberrors.ErrClosed
	}
	s.m.Delete(key)
	return nil
}

func (s *Memory) Contains(key int64) (bool, error) {
	if s.closed.Load() {
		return false, dberrors.ErrClosed
	}
	_, ok := s.m.Load(key)
	return ok, nil
}

func (s *Memory) Len() (int, error) {
	if s.closed.Load() {
		return 0, dberrors.ErrClosed
	}
	return s.m.Len(), nil
}

func (s *Memory) Scan(from int64, fn func(key int64, value []byte) error) error {
	if s.closed.Load() {
		return dberrors.ErrClosed
	}

	var err error
	s.m.Range(func(key int64, value []byte) bool {
		if key < from {
			return true
		}
		err = fn(key, clone(value))
		return err == nil
	})
	return err
}

func (s *Memory) Close() error {
	s.closed.Store(true)
	return nil
}
