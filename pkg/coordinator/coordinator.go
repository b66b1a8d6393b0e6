package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/config"
	"github.com/downfa11-org/cursus-ack/pkg/metrics"
	"github.com/downfa11-org/cursus-ack/pkg/types"
	"github.com/downfa11-org/cursus-ack/util"
)

type heartbeatEvent struct {
	key types.SubscriberKey
	at  time.Time
}

// SubscriberStatusChecker tracks consumer liveness from ack and heartbeat
// requests. Heartbeat never blocks; updates are applied by a background loop.
type SubscriberStatusChecker struct {
	subscribers map[types.SubscriberKey]*types.Subscriber
	mu          sync.RWMutex

	heartbeatCh    chan heartbeatEvent
	sessionTimeout time.Duration
	checkInterval  time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewSubscriberStatusChecker creates a checker from the liveness settings in cfg.
func NewSubscriberStatusChecker(cfg *config.Config) *SubscriberStatusChecker {
	checkInterval := time.Duration(cfg.ConsumerHeartbeatCheckMS) * time.Millisecond
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	return &SubscriberStatusChecker{
		subscribers:    make(map[types.SubscriberKey]*types.Subscriber),
		heartbeatCh:    make(chan heartbeatEvent, cfg.HeartbeatBufferSize),
		sessionTimeout: time.Duration(cfg.ConsumerSessionTimeoutMS) * time.Millisecond,
		checkInterval:  checkInterval,
		stopCh:         make(chan struct{}),
		now:            time.Now,
	}
}

// Start launches the background heartbeat loop.
func (c *SubscriberStatusChecker) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop ends the background loop and waits for it.
func (c *SubscriberStatusChecker) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// Heartbeat records that the consumer is alive. When the queue is full the
// heartbeat is dropped; the next one will refresh the state.
func (c *SubscriberStatusChecker) Heartbeat(partition, group, consumerID string) {
	ev := heartbeatEvent{
		key: types.SubscriberKey{PartitionName: partition, ConsumerGroup: group, ConsumerID: consumerID},
		at:  c.now(),
	}
	select {
	case c.heartbeatCh <- ev:
	default:
		metrics.HeartbeatsDropped.Inc()
		util.Debug("heartbeat queue full, dropped heartbeat of %s/%s/%s", partition, group, consumerID)
	}
}

// Status returns a copy of the subscriber record, if known.
func (c *SubscriberStatusChecker) Status(partition, group, consumerID string) (types.Subscriber, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.subscribers[types.SubscriberKey{PartitionName: partition, ConsumerGroup: group, ConsumerID: consumerID}]
	if !ok {
		return types.Subscriber{}, false
	}
	return *s, true
}

// OnlineSubscribers lists the online consumer ids of a group on a partition.
func (c *SubscriberStatusChecker) OnlineSubscribers(partition, group string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for key, s := range c.subscribers {
		if key.PartitionName == partition && key.ConsumerGroup == group && s.State == types.SubscriberOnline {
			ids = append(ids, key.ConsumerID)
		}
	}
	sort.Strings(ids)
	return ids
}
