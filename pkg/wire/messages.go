package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every request and response of the Map service.
// The encoding is the protobuf wire format of the messages in logmap.proto.
type Message interface {
	AppendProto(b []byte) []byte
	UnmarshalProto(b []byte) error
}

type KeyRequest struct {
	Key int64
}

type InsertRequest struct {
	Key   int64
	Value []byte
}

type GetResponse struct {
	Found bool
	Value []byte
}

type ContainsResponse struct {
	Found bool
}

type LenRequest struct{}

type LenResponse struct {
	Len int64
}

type Empty struct{}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// fields walks the top level of an encoded message. Varint and length
// delimited fields go to the callbacks; other wire types are skipped.
func fields(b []byte, varint func(protowire.Number, uint64), bytes func(protowire.Number, []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if varint != nil {
				varint(num, v)
			}
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if bytes != nil {
				bytes(num, v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// copied detaches v from the transport buffer.
func copied(v []byte) []byte {
	return append([]byte{}, v...)
}

func (m *KeyRequest) AppendProto(b []byte) []byte {
	return appendInt64(b, 1, m.Key)
}

func (m *KeyRequest) UnmarshalProto(b []byte) error {
	*m = KeyRequest{}
	return fields(b, func(num protowire.Number, v uint64) {
		if num == 1 {
			m.Key = int64(v)
		}
	}, nil)
}

func (m *InsertRequest) AppendProto(b []byte) []byte {
	b = appendInt64(b, 1, m.Key)
	return appendBytes(b, 2, m.Value)
}

func (m *InsertRequest) UnmarshalProto(b []byte) error {
	*m = InsertRequest{}
	return fields(b, func(num protowire.Number, v uint64) {
		if num == 1 {
			m.Key = int64(v)
		}
	}, func(num protowire.Number, v []byte) {
		if num == 2 {
			m.Value = copied(v)
		}
	})
}

func (m *GetResponse) AppendProto(b []byte) []byte {
	b = appendBool(b, 1, m.Found)
	return appendBytes(b, 2, m.Value)
}

func (m *GetResponse) UnmarshalProto(b []byte) error {
	*m = GetResponse{}
	return fields(b, func(num protowire.Number, v uint64) {
		if num == 1 {
			m.Found = protowire.DecodeBool(v)
		}
	}, func(num protowire.Number, v []byte) {
		if num == 2 {
			m.Value = copied(v)
		}
	})
}

func (m *ContainsResponse) AppendProto(b []byte) []byte {
	return appendBool(b, 1, m.Found)
}

func (m *ContainsResponse) UnmarshalProto(b []byte) error {
	*m = ContainsResponse{}
	return fields(b, func(num protowire.Number, v uint64) {
		if num == 1 {
			m.Found = protowire.DecodeBool(v)
		}
	}, nil)
}

func (m *LenRequest) AppendProto(b []byte) []byte { return b }

func (m *LenRequest) UnmarshalProto(b []byte) error {
	return fields(b, nil, nil)
}

func (m *LenResponse) AppendProto(b []byte) []byte {
	return appendInt64(b, 1, m.Len)
}

func (m *LenResponse) UnmarshalProto(b []byte) error {
	*m = LenResponse{}
	return fields(b, func(num protowire.Number, v uint64) {
		if num == 1 {
			m.Len = int64(v)
		}
	}, nil)
}

func (m *Empty) AppendProto(b []byte) []byte { return b }

func (m *Empty) UnmarshalProto(b []byte) error {
	return fields(b, nil, nil)
}
