package wire

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is also the gRPC content-subtype, so generated protobuf clients
// of logmap.proto interoperate.
const CodecName = "proto"

// Codec marshals Message values in protobuf wire format. Attach it per
// connection with ServerCodec and ClientCodec: registered globally under
// "proto" it would shadow the stock codec the etcd client depends on.
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("wire: cannot marshal %T", v)
	}
	return m.AppendProto([]byte{}), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("wire: cannot unmarshal into %T", v)
	}
	if err := m.UnmarshalProto(data); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }

// ServerCodec makes a grpc.Server decode requests with Codec.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec{})
}

// ClientCodec makes calls on a connection use Codec.
func ClientCodec() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{}))
}
