package wire

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestMessagesRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Message
		out  Message
	}{
		{"key", &KeyRequest{Key: -42}, &KeyRequest{}},
		{"insert", &InsertRequest{Key: 7, Value: []byte{0x00, 0xff, ':'}}, &InsertRequest{}},
		{"insert min key", &InsertRequest{Key: -1 << 63, Value: []byte("v")}, &InsertRequest{}},
		{"get found", &GetResponse{Found: true, Value: []byte("hello")}, &GetResponse{}},
		{"get absent", &GetResponse{}, &GetResponse{}},
		{"contains", &ContainsResponse{Found: true}, &ContainsResponse{}},
		{"len", &LenResponse{Len: 1 << 40}, &LenResponse{}},
		{"len request", &LenRequest{}, &LenRequest{}},
		{"empty", &Empty{}, &Empty{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Codec{}.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if err := (Codec{}).Unmarshal(data, tt.out); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			again := tt.out.AppendProto(nil)
			if !bytes.Equal(data, again) {
				t.Fatalf("Expected re-encoding %x, got %x", data, again)
			}
		})
	}
}

func TestMessagesMatchProtobuf(t *testing.T) {
	want, err := proto.Marshal(wrapperspb.Int64(-3))
	if err != nil {
		t.Fatalf("proto.Marshal failed: %v", err)
	}
	if got := (&KeyRequest{Key: -3}).AppendProto(nil); !bytes.Equal(got, want) {
		t.Fatalf("KeyRequest: expected %x, got %x", want, got)
	}

	var lr LenResponse
	if err := lr.UnmarshalProto(want); err != nil || lr.Len != -3 {
		t.Fatalf("Expected Len -3, got %d err=%v", lr.Len, err)
	}

	want, _ = proto.Marshal(wrapperspb.Bool(true))
	if got := (&ContainsResponse{Found: true}).AppendProto(nil); !bytes.Equal(got, want) {
		t.Fatalf("ContainsResponse: expected %x, got %x", want, got)
	}

	got := (&InsertRequest{Key: 1, Value: []byte("a")}).AppendProto(nil)
	if want := []byte{0x08, 0x01, 0x12, 0x01, 'a'}; !bytes.Equal(got, want) {
		t.Fatalf("InsertRequest: expected %x, got %x", want, got)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	b := (&InsertRequest{Key: 9, Value: []byte("v")}).AppendProto(nil)
	b = protowire.AppendTag(b, 15, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0xdeadbeef)
	b = protowire.AppendTag(b, 16, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))

	var req InsertRequest
	if err := req.UnmarshalProto(b); err != nil {
		t.Fatalf("UnmarshalProto failed: %v", err)
	}
	if req.Key != 9 || string(req.Value) != "v" {
		t.Fatalf("Expected key 9 value v, got %d %q", req.Key, req.Value)
	}
}

func TestUnmarshalCopiesValue(t *testing.T) {
	b := (&GetResponse{Found: true, Value: []byte("abc")}).AppendProto(nil)

	var resp GetResponse
	if err := resp.UnmarshalProto(b); err != nil {
		t.Fatalf("UnmarshalProto failed: %v", err)
	}
	for i := range b {
		b[i] = 0
	}
	if string(resp.Value) != "abc" {
		t.Fatalf("Expected value to survive buffer reuse, got %q", resp.Value)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	truncated := []byte{0x08, 0x01, 0x12, 0x05, 'a'}

	var req InsertRequest
	if err := (Codec{}).Unmarshal(truncated, &req); err == nil {
		t.Fatal("Expected error for truncated bytes field")
	}
	if err := (Codec{}).Unmarshal([]byte{0x08}, &KeyRequest{}); err == nil {
		t.Fatal("Expected error for truncated varint")
	}

	var notMessage struct{ Key int64 }
	if _, err := (Codec{}).Marshal(&notMessage); err == nil {
		t.Fatal("Expected Marshal error for a non-Message")
	}
	if err := (Codec{}).Unmarshal(nil, &notMessage); err == nil {
		t.Fatal("Expected Unmarshal error for a non-Message")
	}
}
