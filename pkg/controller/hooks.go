package controller

import "github.com/downfa11-org/cursus-ack/util"

// Monitor receives fire-and-forget ack counters.
type Monitor interface {
	IncAckRequestCount()
	IncConsumerAckRequestCount(partition, group string)
	RecordAckSize(partition, group string, size int64)
}

// HeartbeatNotifier keeps subscriber liveness fresh. It must not block.
type HeartbeatNotifier interface {
	Heartbeat(partition, group, consumerID string)
}

// Worker takes ownership of an AckEntry and eventually answers on its
// connection. Enqueue must not block; an error means the entry was not taken.
type Worker interface {
	Enqueue(entry *AckEntry) error
}

// isolate runs a side-channel call so that a panic in it is logged instead of
// failing the request.
func isolate(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			util.Warn("%s failed: %v", op, r)
		}
	}()
	fn()
}

type noopMonitor struct{}

func (noopMonitor) IncAckRequestCount()                       {}
func (noopMonitor) IncConsumerAckRequestCount(string, string) {}
func (noopMonitor) RecordAckSize(string, string, int64)       {}

type noopHeartbeat struct{}

func (noopHeartbeat) Heartbeat(string, string, string) {}
