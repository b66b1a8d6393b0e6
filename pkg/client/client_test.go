package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/pkg/types"
)

func TestClient_MatchesResponsesByOpaque(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	c := NewClient(clientConn, "none")
	defer c.Close()

	// answer two requests in reverse order; heartbeats are refused
	go func() {
		var cmds []*protocol.RemotingCommand
		for len(cmds) < 2 {
			cmd, err := protocol.ReadCommand(serverConn, 0)
			if err != nil {
				return
			}
			cmds = append(cmds, cmd)
		}
		for i := len(cmds) - 1; i >= 0; i-- {
			code := protocol.CodeSuccess
			if req, err := protocol.DecodeAckRequest(cmds[i].Header, cmds[i].Body); err == nil && req.PullOffsetBegin < 0 {
				code = protocol.CodeBrokerError
			}
			_ = protocol.WriteDatagram(serverConn, protocol.BuildEmptyResponse(code, cmds[i].Header))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Ack(ctx, "p0", "g", "c", 0, 9, false) }()

	err := c.Heartbeat(ctx, "p0", "g", "c")
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.Code != protocol.CodeBrokerError {
		t.Fatalf("expected broker error for heartbeat, got %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("expected success for ack, got %v", err)
	}
}

func TestClient_EncodesAckRequest(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	c := NewClient(clientConn, "none")
	defer c.Close()

	got := make(chan *types.AckRequest, 1)
	go func() {
		cmd, err := protocol.ReadCommand(serverConn, 0)
		if err != nil {
			return
		}
		req, err := protocol.DecodeAckRequest(cmd.Header, cmd.Body)
		if err != nil {
			return
		}
		got <- req
		_ = protocol.WriteDatagram(serverConn, protocol.BuildEmptyResponse(protocol.CodeSuccess, cmd.Header))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ack(ctx, "p3", "g3", "c3", 100, 120, true); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	req := <-got
	if req.PartitionName != "p3" || req.ConsumerGroup != "g3" || req.ConsumerID != "c3" {
		t.Fatalf("unexpected identity: %s", req)
	}
	if req.PullOffsetBegin != 100 || req.PullOffsetLast != 120 {
		t.Fatalf("unexpected range: %s", req)
	}
	if req.ExclusiveConsumeFlag != types.ExclusiveTrue {
		t.Fatalf("expected exclusive flag, got %v", req.ExclusiveConsumeFlag)
	}
}

func TestClient_CloseFailsPendingRequests(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	c := NewClient(clientConn, "none")

	go func() {
		_, _ = protocol.ReadCommand(serverConn, 0)
		_ = serverConn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Ack(ctx, "p0", "g", "c", 0, 0, false)
	if !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}

	if _, err := c.Invoke(ctx, protocol.RequestAck, nil); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed after failure, got %v", err)
	}
	_ = c.Close()
}

func TestClient_SetVersionConcurrentWithRequests(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	c := NewClient(clientConn, "none")
	defer c.Close()

	versions := make(chan int16, 64)
	go func() {
		for {
			cmd, err := protocol.ReadCommand(serverConn, 0)
			if err != nil {
				return
			}
			versions <- cmd.Header.Version
			code := protocol.CodeSuccess
			if _, err := protocol.DecodeAckRequest(cmd.Header, cmd.Body); err != nil {
				code = protocol.CodeBrokerError
			}
			_ = protocol.WriteDatagram(serverConn, protocol.BuildEmptyResponse(code, cmd.Header))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if i%2 == 0 {
				c.SetVersion(protocol.Version3)
			} else {
				c.SetVersion(protocol.Version4)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := c.Heartbeat(ctx, "p0", "g", "c"); err != nil {
				t.Errorf("heartbeat %d: %v", i, err)
				return
			}
		}
	}()
	wg.Wait()

	c.SetVersion(protocol.Version3)
	if err := c.Heartbeat(ctx, "p0", "g", "c"); err != nil {
		t.Fatalf("heartbeat after SetVersion: %v", err)
	}

	var last int16
	for len(versions) > 0 {
		last = <-versions
	}
	if last != protocol.Version3 {
		t.Fatalf("expected last request at version %d, got %d", protocol.Version3, last)
	}
}
