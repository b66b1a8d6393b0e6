package coordinator

import (
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/metrics"
	"github.com/downfa11-org/cursus-ack/pkg/types"
	"github.com/downfa11-org/cursus-ack/util"
)

func (c *SubscriberStatusChecker) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.heartbeatCh:
			c.applyHeartbeat(ev)
		case <-ticker.C:
			c.checkSessions()
		case <-c.stopCh:
			return
		}
	}
}

func (c *SubscriberStatusChecker) applyHeartbeat(ev heartbeatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.subscribers[ev.key]
	if !ok {
		c.subscribers[ev.key] = &types.Subscriber{Key: ev.key, LastHeartbeat: ev.at, State: types.SubscriberOnline}
		metrics.SubscribersOnline.Inc()
		util.Debug("subscriber online: %s/%s/%s", ev.key.PartitionName, ev.key.ConsumerGroup, ev.key.ConsumerID)
		return
	}

	if ev.at.After(s.LastHeartbeat) {
		s.LastHeartbeat = ev.at
	}
	if s.State == types.SubscriberOffline {
		s.State = types.SubscriberOnline
		metrics.SubscribersOnline.Inc()
		util.Info("subscriber back online: %s/%s/%s", ev.key.PartitionName, ev.key.ConsumerGroup, ev.key.ConsumerID)
	}
}

func (c *SubscriberStatusChecker) checkSessions() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, s := range c.subscribers {
		if s.State == types.SubscriberOnline && now.Sub(s.LastHeartbeat) > c.sessionTimeout {
			s.State = types.SubscriberOffline
			metrics.SubscribersOnline.Dec()
			util.Info("subscriber offline after %v without heartbeat: %s/%s/%s",
				now.Sub(s.LastHeartbeat).Truncate(time.Millisecond), key.PartitionName, key.ConsumerGroup, key.ConsumerID)
		}
	}
}
