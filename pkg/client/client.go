package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/pkg/types"
	"github.com/downfa11-org/cursus-ack/util"
)

var ErrClientClosed = errors.New("client closed")

// ResponseError is returned when the broker answers with a non-success code.
type ResponseError struct {
	Code int16
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("broker responded with code %d", e.Code)
}

// Client is a consumer-side remoting client. Requests may be issued
// concurrently; responses are matched by opaque id.
type Client struct {
	conn        net.Conn
	compression string
	version     atomic.Int32
	maxFrame    int

	nextOpaque atomic.Int32
	writeMu    sync.Mutex

	mu      sync.Mutex
	pending map[int32]chan *protocol.RemotingCommand
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a broker at addr.
func Dial(ctx context.Context, addr string, useTLS bool, compression string) (*Client, error) {
	var d net.Dialer
	var conn net.Conn
	var err error
	if useTLS {
		td := tls.Dialer{NetDialer: &d, Config: &tls.Config{InsecureSkipVerify: true}}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", addr, err)
	}
	return NewClient(conn, compression), nil
}

// NewClient starts a client over an established connection.
func NewClient(conn net.Conn, compression string) *Client {
	c := &Client{
		conn:        conn,
		compression: compression,
		maxFrame:    protocol.DefaultMaxFrameBytes,
		pending:     make(map[int32]chan *protocol.RemotingCommand),
		done:        make(chan struct{}),
	}
	c.version.Store(int32(protocol.CurrentVersion))
	go c.readLoop()
	return c
}

// SetVersion changes the protocol version of subsequent requests.
func (c *Client) SetVersion(v int16) { c.version.Store(int32(v)) }

func (c *Client) protocolVersion() int16 { return int16(c.version.Load()) }

// Ack acknowledges [first, last] for the consumer.
func (c *Client) Ack(ctx context.Context, partition, group, consumerID string, first, last int64, exclusive bool) error {
	flag := types.ExclusiveFalse
	if exclusive {
		flag = types.ExclusiveTrue
	}
	return c.sendAck(ctx, &types.AckRequest{
		PartitionName:        partition,
		ConsumerGroup:        group,
		ConsumerID:           consumerID,
		PullOffsetBegin:      first,
		PullOffsetLast:       last,
		ExclusiveConsumeFlag: flag,
	})
}

// Heartbeat sends an ack request with a negative begin offset, which the
// broker treats as a liveness signal only.
func (c *Client) Heartbeat(ctx context.Context, partition, group, consumerID string) error {
	return c.sendAck(ctx, &types.AckRequest{
		PartitionName:        partition,
		ConsumerGroup:        group,
		ConsumerID:           consumerID,
		PullOffsetBegin:      -1,
		PullOffsetLast:       -1,
		ExclusiveConsumeFlag: types.ExclusiveFalse,
	})
}

func (c *Client) sendAck(ctx context.Context, req *types.AckRequest) error {
	version := c.protocolVersion()
	body, err := protocol.EncodeAckRequest(version, req)
	if err != nil {
		return err
	}
	resp, err := c.invoke(ctx, protocol.RequestAck, version, body)
	if err != nil {
		return err
	}
	if resp.Header.Code != protocol.CodeSuccess {
		return &ResponseError{Code: resp.Header.Code}
	}
	return nil
}

// Invoke sends one request and waits for the matching response.
func (c *Client) Invoke(ctx context.Context, code int16, body []byte) (*protocol.RemotingCommand, error) {
	return c.invoke(ctx, code, c.protocolVersion(), body)
}

// invoke sends the header and body at the same version.
func (c *Client) invoke(ctx context.Context, code, version int16, body []byte) (*protocol.RemotingCommand, error) {
	opaque := c.nextOpaque.Add(1)
	ch := make(chan *protocol.RemotingCommand, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[opaque] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, opaque)
		c.mu.Unlock()
	}()

	compressed, err := util.CompressBody(body, c.compression)
	if err != nil {
		return nil, err
	}

	c.writeMu.Lock()
	err = protocol.WriteDatagram(c.conn, protocol.NewRequest(code, version, opaque, compressed))
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return nil, c.closeErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	for {
		cmd, err := protocol.ReadCommand(c.conn, c.maxFrame)
		if err != nil {
			c.fail(fmt.Errorf("%w: %w", ErrClientClosed, err))
			return
		}
		if !cmd.Header.IsResponse() {
			util.Debug("ignoring non-response frame code=%d", cmd.Header.Code)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[cmd.Header.Opaque]
		c.mu.Unlock()
		if !ok {
			util.Debug("no pending request for opaque %d", cmd.Header.Opaque)
			continue
		}
		select {
		case ch <- cmd:
		default:
			util.Warn("duplicate response for opaque %d dropped", cmd.Header.Opaque)
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the connection; pending requests fail with ErrClientClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.fail(ErrClientClosed)
	return err
}
