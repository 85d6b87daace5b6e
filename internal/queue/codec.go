package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"fixmystreet/internal/types"
)

// Message attribute names set on every notification message.
const (
	AttrKind            = "kind"
	AttrContentEncoding = "content-encoding"

	encodingZstd = "zstd+base64"
)

// CompressThreshold is the JSON body size above which messages are zstd
// compressed. SQS rejects bodies over 256 KiB.
const CompressThreshold = 64 * 1024

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Encoded is a serialized NotificationMessage ready for SQS.
type Encoded struct {
	Body     string
	Encoding string
}

// EncodeMessage serializes msg to JSON and compresses large bodies.
func EncodeMessage(msg types.NotificationMessage) (Encoded, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Encoded{}, fmt.Errorf("queue: failed to marshal NotificationMessage: %w", err)
	}
	if len(raw) <= CompressThreshold {
		return Encoded{Body: string(raw)}, nil
	}
	compressed := encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4))
	return Encoded{
		Body:     base64.StdEncoding.EncodeToString(compressed),
		Encoding: encodingZstd,
	}, nil
}

// DecodeMessage reverses EncodeMessage. encoding is the value of the
// content-encoding message attribute, or "" for plain JSON.
func DecodeMessage(body, encoding string) (types.NotificationMessage, error) {
	var msg types.NotificationMessage
	raw := []byte(body)

	switch encoding {
	case "":
	case encodingZstd:
		compressed, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return msg, fmt.Errorf("queue: invalid base64 body: %w", err)
		}
		raw, err = decoder.DecodeAll(compressed, nil)
		if err != nil {
			return msg, fmt.Errorf("queue: failed to decompress body: %w", err)
		}
	default:
		return msg, fmt.Errorf("queue: unsupported content encoding %q", encoding)
	}

	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("queue: failed to unmarshal NotificationMessage: %w", err)
	}
	return msg, nil
}
