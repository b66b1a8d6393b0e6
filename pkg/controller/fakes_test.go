package controller_test

import (
	"errors"
	"sync"

	"github.com/downfa11-org/cursus-ack/pkg/controller"
	"github.com/downfa11-org/cursus-ack/pkg/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	written []*protocol.Datagram
	closed  bool
}

func (c *fakeConn) ID() string         { return "conn-1" }
func (c *fakeConn) RemoteAddr() string { return "127.0.0.1:50000" }
func (c *fakeConn) Closed() bool       { return c.closed }

func (c *fakeConn) WriteDatagram(d *protocol.Datagram) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, d)
	return nil
}

type fakeWorker struct {
	entries []*controller.AckEntry
	err     error
}

func (w *fakeWorker) Enqueue(entry *controller.AckEntry) error {
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, entry)
	return nil
}

type heartbeat struct {
	partition, group, consumerID string
}

type fakeChecker struct {
	calls []heartbeat
	panic bool
}

func (c *fakeChecker) Heartbeat(partition, group, consumerID string) {
	if c.panic {
		panic("liveness tracker exploded")
	}
	c.calls = append(c.calls, heartbeat{partition, group, consumerID})
}

type ackSize struct {
	partition, group string
	size             int64
}

type fakeMonitor struct {
	total    int
	consumer map[string]int
	sizes    []ackSize
	panic    bool
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{consumer: make(map[string]int)}
}

func (m *fakeMonitor) IncAckRequestCount() {
	m.total++
	if m.panic {
		panic(errors.New("counter exploded"))
	}
}

func (m *fakeMonitor) IncConsumerAckRequestCount(partition, group string) {
	m.consumer[partition+"/"+group]++
	if m.panic {
		panic("consumer counter exploded")
	}
}

func (m *fakeMonitor) RecordAckSize(partition, group string, size int64) {
	m.sizes = append(m.sizes, ackSize{partition, group, size})
	if m.panic {
		panic("size metric exploded")
	}
}
