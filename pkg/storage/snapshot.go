package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Snapshot layout (all integers little-endian):
//
//	"BMAP" | version u32 | count u32 | count * (keyLen u16 | key | valueLen u32 | value)
//
// Keys are written as "map:<decimal>".
const (
	snapshotMagic   = "BMAP"
	snapshotVersion = uint32(1)
)

type Entry struct {
	Key   int64
	Value []byte
}

// WriteSnapshot dumps every entry of e to w and returns the number written.
func WriteSnapshot(w io.Writer, e Engine) (int, error) {
	var entries []Entry
	if err := e.Scan(minKey, func(key int64, value []byte) error {
		entries = append(entries, Entry{Key: key, Value: value})
		return nil
	}); err != nil {
		return 0, fmt.Errorf("scan engine: %w", err)
	}
	if len(entries) > math.MaxUint32 {
		return 0, fmt.Errorf("too many entries: %d", len(entries))
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(snapshotMagic)
	writeU32(bw, snapshotVersion)
	writeU32(bw, uint32(len(entries)))

	for _, ent := range entries {
		key := keyPrefix + strconv.FormatInt(ent.Key, 10)
		if len(ent.Value) > math.MaxUint32 {
			return 0, fmt.Errorf("value too large for key %d: %d", ent.Key, len(ent.Value))
		}

		var u16 [2]byte
		binary.LittleEndian.PutUint16(u16[:], uint16(len(key)))
		bw.Write(u16[:])
		bw.WriteString(key)
		writeU32(bw, uint32(len(ent.Value)))
		bw.Write(ent.Value)
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	return len(entries), nil
}

// ReadSnapshot parses a snapshot. An empty input is an empty snapshot.
// Entries whose key is not in the map namespace are skipped.
func ReadSnapshot(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: data too short", ErrBadSnapshot)
	}
	if string(data[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrBadSnapshot, data[:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: invalid version %d", ErrBadSnapshot, v)
	}

	count := binary.LittleEndian.Uint32(data[8:12])
	off := 12
	entries := make([]Entry, 0, min(int(count), len(data)/6))

	for i := uint32(0); i < count; i++ {
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated key length", ErrBadSnapshot)
		}
		keyLen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2

		if off+keyLen > len(data) {
			return nil, fmt.Errorf("%w: truncated key", ErrBadSnapshot)
		}
		key := string(data[off : off+keyLen])
		off += keyLen

		if off+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated value length", ErrBadSnapshot)
		}
		valueLen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4

		if valueLen > len(data)-off {
			return nil, fmt.Errorf("%w: truncated value", ErrBadSnapshot)
		}
		value := clone(data[off : off+valueLen])
		off += valueLen

		k, ok := strings.CutPrefix(key, keyPrefix)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Key: parsed, Value: value})
	}

	return entries, nil
}

// Restore inserts entries into e, overwriting existing keys.
func Restore(e Engine, entries []Entry) error {
	for _, ent := range entries {
		if err := e.Insert(ent.Key, ent.Value); err != nil {
			return fmt.Errorf("restore key %d: %w", ent.Key, err)
		}
	}
	return nil
}

func writeU32(w *bufio.Writer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
