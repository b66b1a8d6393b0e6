package controller

import "github.com/downfa11-org/cursus-ack/pkg/protocol"

// Conn is the connection a request arrived on. Processors only keep it so a
// deferred response can be written later.
type Conn interface {
	ID() string
	RemoteAddr() string
	WriteDatagram(d *protocol.Datagram) error
	Closed() bool
}
