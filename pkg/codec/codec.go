// Package codec frames a tagged binary record into a single value string
// and parses it back.
//
// The framing is "<tag>:<len>:<blob>" where tag and len are decimal ASCII
// and blob is copied verbatim. The length field is authoritative: a value
// decodes only if exactly len bytes follow the second delimiter.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const delim = ':'

var ErrMalformedRecord = errors.New("codec: malformed record")

// Record is the unit of append.
type Record struct {
	Tag  uint64
	Blob []byte
}

func (r Record) Encode() []byte {
	return Encode(r.Tag, r.Blob)
}

// Encode renders tag and blob into the framed representation.
func Encode(tag uint64, blob []byte) []byte {
	// 20 digits for uint64 plus the length field and both delimiters
	buf := make([]byte, 0, 2*20+2+len(blob))
	buf = strconv.AppendUint(buf, tag, 10)
	buf = append(buf, delim)
	buf = strconv.AppendUint(buf, uint64(len(blob)), 10)
	buf = append(buf, delim)
	return append(buf, blob...)
}

// Decode parses a framed value. The returned blob never aliases value.
func Decode(value []byte) (uint64, []byte, error) {
	tag, rest, err := readField(value, "tag")
	if err != nil {
		return 0, nil, err
	}

	n, rest, err := readField(rest, "length")
	if err != nil {
		return 0, nil, err
	}

	if n > math.MaxInt || uint64(len(rest)) < n {
		return 0, nil, fmt.Errorf("%w: declared length %d, %d bytes available", ErrMalformedRecord, n, len(rest))
	}
	if uint64(len(rest)) > n {
		return 0, nil, fmt.Errorf("%w: %d trailing bytes after blob", ErrMalformedRecord, uint64(len(rest))-n)
	}

	blob := make([]byte, n)
	copy(blob, rest)
	return tag, blob, nil
}

func DecodeRecord(value []byte) (Record, error) {
	tag, blob, err := Decode(value)
	if err != nil {
		return Record{}, err
	}
	return Record{Tag: tag, Blob: blob}, nil
}

// readField parses a non-negative decimal integer terminated by delim and
// returns the bytes following the delimiter.
func readField(b []byte, name string) (uint64, []byte, error) {
	var v uint64
	for i, c := range b {
		if c == delim {
			if i == 0 {
				return 0, nil, fmt.Errorf("%w: empty %s field", ErrMalformedRecord, name)
			}
			return v, b[i+1:], nil
		}
		if c < '0' || c > '9' {
			return 0, nil, fmt.Errorf("%w: invalid byte %q in %s field", ErrMalformedRecord, c, name)
		}
		d := uint64(c - '0')
		if v > (math.MaxUint64-d)/10 {
			return 0, nil, fmt.Errorf("%w: %s field overflows", ErrMalformedRecord, name)
		}
		v = v*10 + d
	}
	return 0, nil, fmt.Errorf("%w: missing delimiter after %s field", ErrMalformedRecord, name)
}
