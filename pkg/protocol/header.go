package protocol

import (
	"encoding/binary"
	"fmt"
)

// MagicCode opens every remoting header.
const MagicCode uint32 = 0xDEC10ADE

// HeaderLen is the encoded size of RemotingHeader.
const HeaderLen = 18

// Protocol versions. Version4 introduced the trailing tag/exclusive byte on
// ack and pull requests.
const (
	Version3       int16 = 3
	Version4       int16 = 4
	CurrentVersion       = Version4
)

// Request codes.
const (
	RequestSendMessage int16 = 10
	RequestPullMessage int16 = 11
	RequestAck         int16 = 12
)

// Response status codes.
const (
	CodeSuccess     int16 = 0
	CodeUnknownCode int16 = 3
	CodeBrokerError int16 = 51
	CodeParamError  int16 = 53
)

const (
	FlagRequest  int32 = 0
	FlagResponse int32 = 1
)

// RemotingHeader is the fixed header of every frame. Requests carry their
// request code in Code; responses carry a status in Code and echo the request
// code in RequestCode. Opaque correlates a response with its request.
type RemotingHeader struct {
	MagicCode   uint32
	Code        int16
	Version     int16
	Opaque      int32
	Flag        int32
	RequestCode int16
}

// SupportTags reports whether the given version carries the tag byte.
func SupportTags(version int16) bool {
	return version >= Version4
}

func (h RemotingHeader) IsResponse() bool {
	return h.Flag&FlagResponse != 0
}

func (h RemotingHeader) String() string {
	return fmt.Sprintf("RemotingHeader{code=%d, version=%d, opaque=%d, flag=%d, requestCode=%d}",
		h.Code, h.Version, h.Opaque, h.Flag, h.RequestCode)
}

func EncodeHeader(h RemotingHeader) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.MagicCode)
	binary.BigEndian.PutUint16(buf[4:6], uint16(h.Code))
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Version))
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.Opaque))
	binary.BigEndian.PutUint32(buf[12:16], uint32(h.Flag))
	binary.BigEndian.PutUint16(buf[16:18], uint16(h.RequestCode))
	return buf
}

func DecodeHeader(b []byte) (RemotingHeader, error) {
	if len(b) < HeaderLen {
		return RemotingHeader{}, fmt.Errorf("%w: header is %d bytes, need %d", ErrShortFrame, len(b), HeaderLen)
	}
	h := RemotingHeader{
		MagicCode:   binary.BigEndian.Uint32(b[0:4]),
		Code:        int16(binary.BigEndian.Uint16(b[4:6])),
		Version:     int16(binary.BigEndian.Uint16(b[6:8])),
		Opaque:      int32(binary.BigEndian.Uint32(b[8:12])),
		Flag:        int32(binary.BigEndian.Uint32(b[12:16])),
		RequestCode: int16(binary.BigEndian.Uint16(b[16:18])),
	}
	if h.MagicCode != MagicCode {
		return RemotingHeader{}, fmt.Errorf("%w: %x", ErrBadMagic, h.MagicCode)
	}
	return h, nil
}
