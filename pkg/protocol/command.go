package protocol

import "time"

// RemotingCommand is one decoded inbound frame.
type RemotingCommand struct {
	Header      RemotingHeader
	Body        []byte
	ReceiveTime time.Time
}

// Datagram is one outbound frame.
type Datagram struct {
	Header RemotingHeader
	Body   []byte
}

// NewRequest builds a request datagram for the given request code.
func NewRequest(code, version int16, opaque int32, body []byte) *Datagram {
	return &Datagram{
		Header: RemotingHeader{
			MagicCode: MagicCode,
			Code:      code,
			Version:   version,
			Opaque:    opaque,
			Flag:      FlagRequest,
		},
		Body: body,
	}
}

// BuildEmptyResponse builds a header-only response to request, keeping the
// request's version and opaque id so the peer can match it.
func BuildEmptyResponse(code int16, request RemotingHeader) *Datagram {
	return &Datagram{
		Header: RemotingHeader{
			MagicCode:   MagicCode,
			Code:        code,
			Version:     request.Version,
			Opaque:      request.Opaque,
			Flag:        FlagResponse,
			RequestCode: request.Code,
		},
	}
}
