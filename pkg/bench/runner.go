package bench

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/downfa11-org/cursus-ack/util"
)

type BenchmarkRunner struct {
	Addr            string
	NumConsumers    int
	AcksPerConsumer int
	BatchSize       int
	HeartbeatEvery  int
	Partitions      int
	Group           string
	Compression     string
	UseTLS          bool
}

// Result summarizes one benchmark run.
type Result struct {
	TotalAcks int
	Failures  int
	Duration  time.Duration
	P50       time.Duration
	P99       time.Duration
	Max       time.Duration
}

func NewBenchmarkRunner(addr, group string, partitions, consumers, acks, batch int) *BenchmarkRunner {
	return &BenchmarkRunner{
		Addr:            addr,
		NumConsumers:    consumers,
		AcksPerConsumer: acks,
		BatchSize:       batch,
		HeartbeatEvery:  100,
		Partitions:      partitions,
		Group:           group,
		Compression:     util.CompressionNone,
	}
}

// Run starts every consumer concurrently and waits for all of them.
func (b *BenchmarkRunner) Run(ctx context.Context) Result {
	partitions := b.Partitions
	if partitions <= 0 {
		partitions = 1
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		latencies []time.Duration
		failures  int
	)

	start := time.Now()
	for i := 0; i < b.NumConsumers; i++ {
		wg.Add(1)
		go func(cid int) {
			defer wg.Done()
			c := &BenchClient{
				Addr:           b.Addr,
				Compression:    b.Compression,
				UseTLS:         b.UseTLS,
				Partition:      fmt.Sprintf("bench-partition-%d", cid%partitions),
				Group:          b.Group,
				ConsumerID:     fmt.Sprintf("bench-consumer-%d", cid),
				NumAcks:        b.AcksPerConsumer,
				BatchSize:      b.BatchSize,
				HeartbeatEvery: b.HeartbeatEvery,
			}
			lat, err := c.Run(ctx)

			mu.Lock()
			defer mu.Unlock()
			latencies = append(latencies, lat...)
			if err != nil {
				failures++
				util.Error("❌ consumer %d: %v", cid, err)
			}
		}(i)
	}
	wg.Wait()

	return summarize(latencies, failures, time.Since(start))
}

func summarize(latencies []time.Duration, failures int, elapsed time.Duration) Result {
	r := Result{TotalAcks: len(latencies), Failures: failures, Duration: elapsed}
	if len(latencies) == 0 {
		return r
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	r.P50 = percentile(latencies, 0.50)
	r.P99 = percentile(latencies, 0.99)
	r.Max = latencies[len(latencies)-1]
	return r
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, q float64) time.Duration {
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (b *BenchmarkRunner) Print(r Result) {
	throughput := 0.0
	if r.Duration > 0 {
		throughput = float64(r.TotalAcks) / r.Duration.Seconds()
	}

	fmt.Printf("\n🧪 BENCHMARK RESULT [ack] 🧪\n")
	fmt.Printf("-------------------------------------\n")
	fmt.Printf(" Consumers     : %d\n", b.NumConsumers)
	fmt.Printf(" Partitions    : %d\n", b.Partitions)
	fmt.Printf(" Batch Size    : %d\n", b.BatchSize)
	fmt.Printf(" Total Acks    : %d\n", r.TotalAcks)
	fmt.Printf(" Failed        : %d\n", r.Failures)
	fmt.Printf(" Duration      : %v\n", r.Duration)
	fmt.Printf(" Throughput    : %.2f ack/sec\n", throughput)
	fmt.Printf(" Latency p50   : %v\n", r.P50)
	fmt.Printf(" Latency p99   : %v\n", r.P99)
	fmt.Printf(" Latency max   : %v\n", r.Max)
	fmt.Printf("-------------------------------------\n")
}
