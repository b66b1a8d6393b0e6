package worker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/downfa11-org/cursus-ack/pkg/config"
	"github.com/downfa11-org/cursus-ack/pkg/controller"
	"github.com/downfa11-org/cursus-ack/pkg/metrics"
	"github.com/downfa11-org/cursus-ack/pkg/offset"
	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/util"
)

var (
	ErrMailboxFull = errors.New("ack worker mailbox full")
	ErrStopped     = errors.New("ack worker stopped")
	ErrNotStarted  = errors.New("ack worker not started")
)

// AckStore persists acknowledged ranges.
type AckStore interface {
	PutAckActions(partition, group, consumerID string, first, last int64, exclusive bool) error
}

// AckWorker applies ack entries off the request path. Entries of one
// consumer group always land on the same shard and are applied in order.
type AckWorker struct {
	store  AckStore
	shards []chan *controller.AckEntry

	mu      sync.RWMutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

func NewAckWorker(cfg *config.Config, store AckStore) *AckWorker {
	n := cfg.AckWorkerShards
	if n <= 0 {
		n = 1
	}
	size := cfg.AckMailboxSize
	if size <= 0 {
		size = 1
	}

	w := &AckWorker{
		store:  store,
		shards: make([]chan *controller.AckEntry, n),
	}
	for i := range w.shards {
		w.shards[i] = make(chan *controller.AckEntry, size)
	}
	return w
}

// Start launches one goroutine per shard.
func (w *AckWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	for i, ch := range w.shards {
		w.wg.Add(1)
		go w.run(i, ch)
	}
	util.Info("🧵 ack worker started with %d shards", len(w.shards))
}

// Stop rejects new entries, drains the mailboxes and waits for the shards.
func (w *AckWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for _, ch := range w.shards {
		close(ch)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// Enqueue hands an entry to its shard without blocking. Entries are only
// accepted between Start and Stop, so every accepted entry gets a response.
func (w *AckWorker) Enqueue(entry *controller.AckEntry) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		metrics.AckMailboxRejected.Inc()
		return ErrStopped
	}
	if !w.started {
		metrics.AckMailboxRejected.Inc()
		return ErrNotStarted
	}

	idx := util.Hash(entry.ConsumerGroup()) % len(w.shards)
	select {
	case w.shards[idx] <- entry:
		return nil
	default:
		metrics.AckMailboxRejected.Inc()
		return fmt.Errorf("%w: shard %d", ErrMailboxFull, idx)
	}
}

func (w *AckWorker) run(idx int, ch <-chan *controller.AckEntry) {
	defer w.wg.Done()
	for entry := range ch {
		w.process(entry)
	}
	util.Debug("ack worker shard %d drained", idx)
}

func (w *AckWorker) process(e *controller.AckEntry) {
	code := protocol.CodeSuccess
	result := "success"

	err := w.store.PutAckActions(e.PartitionName(), e.ConsumerGroup(), e.ConsumerID(),
		e.FirstPullLogOffset(), e.LastPullLogOffset(), e.IsExclusiveConsume())
	switch {
	case err == nil:
	case errors.Is(err, offset.ErrStaleAck):
		// resent ack for a range already applied
		result = "duplicate"
		util.Debug("duplicate ack ignored: %s", e)
	default:
		code = protocol.CodeBrokerError
		result = "error"
		util.Warn("⚠️ put ack actions failed: %s: %v", e, err)
	}
	metrics.ObserveAckCompleted(result, e.AckStartTimestamp())

	conn := e.Conn()
	if conn == nil || conn.Closed() {
		util.Warn("connection closed before ack response could be sent: %s", e)
		return
	}
	if err := conn.WriteDatagram(protocol.BuildEmptyResponse(code, e.RequestHeader())); err != nil {
		util.Warn("⚠️ write ack response to %s failed: %v", conn.RemoteAddr(), err)
	}
}
