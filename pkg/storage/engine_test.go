package storage

import (
	"bytes"
	"errors"
	"testing"

	"logwal/pkg/dberrors"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

func newPebble(t *testing.T, fs vfs.FS) *Pebble {
	t.Helper()
	p, err := OpenPebble("db", &pebble.Options{FS: fs})
	if err != nil {
		t.Fatalf("OpenPebble failed: %v", err)
	}
	return p
}

func engines(t *testing.T) map[string]Engine {
	return map[string]Engine{
		"memory": NewMemory(),
		"pebble": newPebble(t, vfs.NewMem()),
	}
}

func TestEngine_InsertGetRemove(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			defer e.Close()

			if err := e.Insert(1, []byte("hello")); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if err := e.Insert(1, []byte("world")); err != nil {
				t.Fatalf("Overwrite failed: %v", err)
			}

			v, ok, err := e.Get(1)
			if err != nil || !ok {
				t.Fatalf("Get failed: ok=%v err=%v", ok, err)
			}
			if string(v) != "world" {
				t.Fatalf("Expected 'world', got '%s'", v)
			}

			if _, ok, err := e.Get(2); err != nil || ok {
				t.Fatalf("Expected absent key 2, ok=%v err=%v", ok, err)
			}

			n, err := e.Len()
			if err != nil || n != 1 {
				t.Fatalf("Expected len 1, got %d (%v)", n, err)
			}

			if err := e.Remove(1); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if err := e.Remove(1); err != nil {
				t.Fatalf("Remove of absent key failed: %v", err)
			}
			if ok, err := e.Contains(1); err != nil || ok {
				t.Fatalf("Expected key 1 removed, ok=%v err=%v", ok, err)
			}
			if n, _ := e.Len(); n != 0 {
				t.Fatalf("Expected len 0, got %d", n)
			}
		})
	}
}

func TestEngine_ValueIsCopied(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			defer e.Close()

			buf := []byte("abc")
			if err := e.Insert(5, buf); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			buf[0] = 'x'

			v, _, _ := e.Get(5)
			if string(v) != "abc" {
				t.Fatalf("Stored value aliased caller buffer: %q", v)
			}
		})
	}
}

func TestEngine_ScanOrdered(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			defer e.Close()

			for _, k := range []int64{10, -3, 0, 7, -1 << 40, 1 << 40} {
				if err := e.Insert(k, []byte{byte(k)}); err != nil {
					t.Fatalf("Insert %d failed: %v", k, err)
				}
			}

			var got []int64
			err := e.Scan(-1, func(k int64, _ []byte) error {
				got = append(got, k)
				return nil
			})
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}

			want := []int64{0, 7, 10, 1 << 40}
			if len(got) != len(want) {
				t.Fatalf("Expected %v, got %v", want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("Expected %v, got %v", want, got)
				}
			}

			stop := errors.New("stop")
			calls := 0
			err = e.Scan(minKey, func(int64, []byte) error {
				calls++
				return stop
			})
			if !errors.Is(err, stop) || calls != 1 {
				t.Fatalf("Expected scan to stop after first entry, calls=%d err=%v", calls, err)
			}
		})
	}
}

func TestEngine_Closed(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			if err := e.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if err := e.Insert(1, []byte("x")); !errors.Is(err, dberrors.ErrClosed) {
				t.Fatalf("Expected ErrClosed, got %v", err)
			}
			if _, _, err := e.Get(1); !errors.Is(err, dberrors.ErrClosed) {
				t.Fatalf("Expected ErrClosed, got %v", err)
			}
		})
	}
}

func TestPebble_Reopen(t *testing.T) {
	fs := vfs.NewMem()

	p := newPebble(t, fs)
	for i := int64(0); i < 3; i++ {
		if err := p.Insert(i, []byte("v")); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	p = newPebble(t, fs)
	defer p.Close()

	n, err := p.Len()
	if err != nil || n != 3 {
		t.Fatalf("Expected 3 entries after reopen, got %d (%v)", n, err)
	}
	v, ok, err := p.Get(2)
	if err != nil || !ok || !bytes.Equal(v, []byte("v")) {
		t.Fatalf("Expected key 2 after reopen, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestOpen_Backend(t *testing.T) {
	e, err := Open("memory", "")
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	_ = e.Close()

	if _, err := Open("rocks", ""); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Expected ErrUnknownBackend, got %v", err)
	}
}
