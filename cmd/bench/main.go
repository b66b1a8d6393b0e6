package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/downfa11-org/cursus-ack/pkg/bench"
	"github.com/downfa11-org/cursus-ack/util"
)

func main() {
	addr := flag.String("addr", "localhost:9000", "broker address")
	group := flag.String("group", "bench-group", "consumer group")
	partitions := flag.Int("partitions", 4, "number of partitions")
	consumers := flag.Int("consumers", 12, "number of consumers")
	acks := flag.Int("acks", 1000, "acks per consumer")
	batch := flag.Int("batch", 32, "messages per ack")
	heartbeat := flag.Int("heartbeat-every", 100, "send a heartbeat every N acks (0 disables)")
	compression := flag.String("compression", util.CompressionNone, "frame body compression (none, gzip, snappy, lz4)")
	useTLS := flag.Bool("tls", false, "connect with TLS")
	flag.Parse()

	if !util.IsSupportedCompression(*compression) {
		util.Fatal("unsupported compression %q", *compression)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := bench.NewBenchmarkRunner(*addr, *group, *partitions, *consumers, *acks, *batch)
	runner.HeartbeatEvery = *heartbeat
	runner.Compression = *compression
	runner.UseTLS = *useTLS

	result := runner.Run(ctx)
	runner.Print(result)
	if result.Failures > 0 {
		os.Exit(1)
	}
}
