package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/client"
	"github.com/downfa11-org/cursus-ack/util"
)

const AckTimeout = 5 * time.Second

// BenchClient plays one consumer: it acks consecutive batches and sends a
// heartbeat every HeartbeatEvery acks.
type BenchClient struct {
	Addr           string
	Compression    string
	UseTLS         bool
	Partition      string
	Group          string
	ConsumerID     string
	NumAcks        int
	BatchSize      int
	HeartbeatEvery int
}

// Run sends all acks and returns the latency of each one.
func (c *BenchClient) Run(ctx context.Context) ([]time.Duration, error) {
	cli, err := client.Dial(ctx, c.Addr, c.UseTLS, c.Compression)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	batch := int64(c.BatchSize)
	if batch <= 0 {
		batch = 1
	}

	latencies := make([]time.Duration, 0, c.NumAcks)
	for i := 0; i < c.NumAcks; i++ {
		if c.HeartbeatEvery > 0 && i%c.HeartbeatEvery == 0 {
			if err := c.call(ctx, func(ctx context.Context) error {
				return cli.Heartbeat(ctx, c.Partition, c.Group, c.ConsumerID)
			}); err != nil {
				return latencies, fmt.Errorf("[%s] heartbeat %d: %w", c.ConsumerID, i, err)
			}
		}

		first := int64(i) * batch
		last := first + batch - 1

		start := time.Now()
		if err := c.call(ctx, func(ctx context.Context) error {
			return cli.Ack(ctx, c.Partition, c.Group, c.ConsumerID, first, last, false)
		}); err != nil {
			return latencies, fmt.Errorf("[%s] ack [%d, %d]: %w", c.ConsumerID, first, last, err)
		}
		latencies = append(latencies, time.Since(start))
	}

	util.Debug("consumer %s finished %d acks", c.ConsumerID, len(latencies))
	return latencies, nil
}

func (c *BenchClient) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, AckTimeout)
	defer cancel()
	return fn(ctx)
}
