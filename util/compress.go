package util

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	snappy "github.com/segmentio/kafka-go/compress/snappy/go-xerial-snappy"
)

const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

// IsSupportedCompression reports whether t names a frame body codec.
func IsSupportedCompression(t string) bool {
	switch t {
	case CompressionNone, CompressionGzip, CompressionSnappy, CompressionLZ4, "":
		return true
	}
	return false
}

// CompressBody compresses a frame body. Empty bodies are left untouched so
// header-only responses stay header-only on the wire.
func CompressBody(data []byte, compressionType string) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch compressionType {
	case CompressionGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := gw.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionSnappy:
		return snappy.EncodeStream(nil, data), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionNone, "":
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// DecompressBody reverses CompressBody.
func DecompressBody(data []byte, compressionType string) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch compressionType {
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer func() {
			if err := gr.Close(); err != nil {
				Error("failed to close gzip reader: %v", err)
			}
		}()
		return io.ReadAll(gr)

	case CompressionSnappy:
		return snappy.Decode(data)

	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))

	case CompressionNone, "":
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
