package server

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/util"
	"github.com/google/uuid"
)

// Connection wraps a client socket. Writes are serialized so responses from
// the request loop and the ack worker never interleave on the wire.
type Connection struct {
	id          string
	conn        net.Conn
	compression string

	writeMu sync.Mutex
	closed  atomic.Bool
}

func NewConnection(conn net.Conn, compression string) *Connection {
	return &Connection{
		id:          uuid.NewString(),
		conn:        conn,
		compression: compression,
	}
}

func (c *Connection) ID() string         { return c.id }
func (c *Connection) RemoteAddr() string { return c.conn.RemoteAddr().String() }
func (c *Connection) Closed() bool       { return c.closed.Load() }

// WriteDatagram compresses the body if configured and writes one frame.
func (c *Connection) WriteDatagram(d *protocol.Datagram) error {
	if c.Closed() {
		return net.ErrClosed
	}

	out := d
	if len(d.Body) > 0 {
		body, err := util.CompressBody(d.Body, c.compression)
		if err != nil {
			return err
		}
		out = &protocol.Datagram{Header: d.Header, Body: body}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteDatagram(c.conn, out)
}

// Close is idempotent.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
