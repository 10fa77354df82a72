package wal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"logwal/pkg/dberrors"
)

var errInjected = errors.New("injected failure")

// fakeMap is an in-process logmap.Map that records how many calls are in
// flight at once.
type fakeMap struct {
	mu   sync.Mutex
	data map[int64][]byte

	concurrent bool
	delay      time.Duration

	failInserts atomic.Int32
	failGets    atomic.Bool
	failLen     bool

	active        atomic.Int32
	maxActive     atomic.Int32
	activeInserts atomic.Int32
	maxInserts    atomic.Int32
	closeCalls    atomic.Int32
}

func newFakeMap() *fakeMap {
	return &fakeMap{data: make(map[int64][]byte)}
}

func (f *fakeMap) ConcurrentSafe() bool { return f.concurrent }

func raise(cur, peak *atomic.Int32) func() {
	n := cur.Add(1)
	for {
		m := peak.Load()
		if n <= m || peak.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { cur.Add(-1) }
}

func (f *fakeMap) enter() func() {
	leave := raise(&f.active, &f.maxActive)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return leave
}

func (f *fakeMap) Insert(_ context.Context, key int64, value []byte) error {
	leaveInsert := raise(&f.activeInserts, &f.maxInserts)
	defer leaveInsert()
	defer f.enter()()

	if f.failInserts.Load() > 0 {
		f.failInserts.Add(-1)
		return errInjected
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeMap) Get(_ context.Context, key int64) ([]byte, bool, error) {
	defer f.enter()()

	if f.failGets.Load() {
		return nil, false, errInjected
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (f *fakeMap) Remove(_ context.Context, key int64) error {
	defer f.enter()()

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeMap) ContainsKey(_ context.Context, key int64) (bool, error) {
	defer f.enter()()

	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeMap) Len(context.Context) (int, error) {
	if f.failLen {
		return 0, dberrors.ErrClosed
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data), nil
}

func (f *fakeMap) Close() error {
	f.closeCalls.Add(1)
	return nil
}

func (f *fakeMap) put(key int64, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = []byte(value)
}

// recorder is a metrics.Collector that counts counter increments by
// name and result label.
type recorder struct {
	mu     sync.Mutex
	counts map[string]float64
	gauges map[string]float64
}

func newRecorder() *recorder {
	return &recorder{counts: make(map[string]float64), gauges: make(map[string]float64)}
}

func (r *recorder) IncCounter(name string, labels map[string]string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name+"/"+labels["result"]] += delta
}

func (r *recorder) SetGauge(name string, _ map[string]string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

func (r *recorder) ObserveHistogram(string, map[string]string, float64) {}
