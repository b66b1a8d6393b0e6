package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/config"
	"github.com/downfa11-org/cursus-ack/pkg/controller"
	"github.com/downfa11-org/cursus-ack/pkg/coordinator"
	"github.com/downfa11-org/cursus-ack/pkg/metrics"
	"github.com/downfa11-org/cursus-ack/pkg/offset"
	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/pkg/server"
	"github.com/downfa11-org/cursus-ack/pkg/worker"
	"github.com/downfa11-org/cursus-ack/util"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		util.Fatal("❌ Failed to load config: %v", err)
	}

	util.Info("🚀 Starting broker on port %d", cfg.BrokerPort)
	util.Info("📊 Exporter: %v | 🧵 Ack shards: %d x %d", cfg.EnableExporter, cfg.AckWorkerShards, cfg.AckMailboxSize)

	if cfg.EnableExporter {
		exporter := metrics.StartMetricsServer(cfg.ExporterPort)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = exporter.Shutdown(ctx)
		}()
	} else {
		util.Info("📉 Exporter disabled")
	}

	// Initialization
	checker := coordinator.NewSubscriberStatusChecker(cfg)
	store := offset.NewSequenceManager()
	ackWorker := worker.NewAckWorker(cfg, store)

	processor, err := controller.NewAckProcessor(ackWorker, checker, metrics.NewAckMonitor())
	if err != nil {
		util.Fatal("❌ Failed to create ack processor: %v", err)
	}

	router := controller.NewRouter()
	router.Register(protocol.RequestAck, processor)

	checker.Start()
	ackWorker.Start()

	srv := server.NewServer(cfg, router)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		util.Info("🛑 Received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			util.Error("❌ Broker failed: %v", err)
		}
	}

	_ = srv.Close()
	ackWorker.Stop()
	checker.Stop()
	util.Info("👋 Broker stopped")
}
