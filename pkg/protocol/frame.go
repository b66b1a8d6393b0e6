package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultMaxFrameBytes bounds a single frame when no limit is configured.
const DefaultMaxFrameBytes = 4 * 1024 * 1024

var (
	ErrShortFrame    = errors.New("protocol: short frame")
	ErrBadMagic      = errors.New("protocol: bad magic code")
	ErrFrameTooLarge = errors.New("protocol: frame too large")
)

// Frame layout: [4 total length][2 header length][header][body], where total
// length counts everything after itself.

// ReadCommand reads one frame from r.
func ReadCommand(r io.Reader, maxFrameBytes int) (*RemotingCommand, error) {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: read length: %w", ErrShortFrame, err)
		}
		return nil, err
	}
	total := binary.BigEndian.Uint32(lenBuf[:])
	if total > uint32(maxFrameBytes) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, total, maxFrameBytes)
	}
	if total < 2+HeaderLen {
		return nil, fmt.Errorf("%w: total length %d", ErrShortFrame, total)
	}

	frame := make([]byte, total)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("%w: read frame: %w", ErrShortFrame, err)
	}

	headerLen := int(binary.BigEndian.Uint16(frame[0:2]))
	if headerLen < HeaderLen || 2+headerLen > len(frame) {
		return nil, fmt.Errorf("%w: header length %d in frame of %d", ErrShortFrame, headerLen, total)
	}
	header, err := DecodeHeader(frame[2 : 2+headerLen])
	if err != nil {
		return nil, err
	}

	return &RemotingCommand{
		Header:      header,
		Body:        frame[2+headerLen:],
		ReceiveTime: time.Now(),
	}, nil
}

// EncodeDatagram renders d as a complete frame.
func EncodeDatagram(d *Datagram) []byte {
	header := EncodeHeader(d.Header)
	total := 2 + len(header) + len(d.Body)
	buf := make([]byte, 4+total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(header)))
	copy(buf[6:], header)
	copy(buf[6+len(header):], d.Body)
	return buf
}

// WriteDatagram writes d as a single frame with one Write call.
func WriteDatagram(w io.Writer, d *Datagram) error {
	if _, err := w.Write(EncodeDatagram(d)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
