package util

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const maxShortString = 0xFFFF

// WriteShortString writes s with a 2-byte big-endian length prefix.
func WriteShortString(buf *bytes.Buffer, s string) error {
	if len(s) > maxShortString {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
	return nil
}

// ReadShortString reads a string written by WriteShortString.
func ReadShortString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("read length: %w", err)
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return "", nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("read %d string bytes: %w", n, err)
	}
	return string(data), nil
}

// WriteInt64 writes v as 8 big-endian bytes.
func WriteInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

// ReadInt64 reads 8 big-endian bytes as a signed integer.
func ReadInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read int64: %w", err)
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}
