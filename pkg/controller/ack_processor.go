package controller

import (
	"errors"
	"fmt"

	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/pkg/types"
	"github.com/downfa11-org/cursus-ack/util"
)

// AckProcessor turns ack requests into immediate responses (invalid and
// heartbeat requests) or AckEntry work for the worker (real acks).
type AckProcessor struct {
	worker  Worker
	checker HeartbeatNotifier
	monitor Monitor
}

// NewAckProcessor wires the processor. A nil checker or monitor is replaced
// by a no-op; the worker is required.
func NewAckProcessor(worker Worker, checker HeartbeatNotifier, monitor Monitor) (*AckProcessor, error) {
	if worker == nil {
		return nil, errors.New("ack processor requires a worker")
	}
	if checker == nil {
		checker = noopHeartbeat{}
	}
	if monitor == nil {
		monitor = noopMonitor{}
	}
	return &AckProcessor{worker: worker, checker: checker, monitor: monitor}, nil
}

// Process handles one ack command. Decode and dispatch failures are returned
// as errors; everything else yields a Result.
func (p *AckProcessor) Process(conn Conn, cmd *protocol.RemotingCommand) (Result, error) {
	isolate("ack request counter", p.monitor.IncAckRequestCount)

	req, err := protocol.DecodeAckRequest(cmd.Header, cmd.Body)
	if err != nil {
		return Result{}, fmt.Errorf("decode ack request from %s: %w", conn.RemoteAddr(), err)
	}

	class, reason := Classify(req)
	if class == ClassInvalid {
		util.Warn("receive error param ack request (%s): %s", reason, req)
		return Immediate(protocol.BuildEmptyResponse(protocol.CodeBrokerError, cmd.Header)), nil
	}

	isolate("consumer ack request counter", func() {
		p.monitor.IncConsumerAckRequestCount(req.PartitionName, req.ConsumerGroup)
	})
	isolate("subscriber heartbeat", func() {
		p.checker.Heartbeat(req.PartitionName, req.ConsumerGroup, req.ConsumerID)
	})

	if class == ClassHeartbeat {
		return Immediate(protocol.BuildEmptyResponse(protocol.CodeSuccess, cmd.Header)), nil
	}

	p.monitorAckSize(req)

	entry := BuildEntry(req, conn, cmd.Header)
	if err := p.worker.Enqueue(entry); err != nil {
		return Result{}, fmt.Errorf("dispatch %s: %w", entry, err)
	}
	return Pending(), nil
}

// monitorAckSize reports last-first+1 as is. Inverted ranges are not
// rejected here and produce a non-positive size.
func (p *AckProcessor) monitorAckSize(req *types.AckRequest) {
	size := req.PullOffsetLast - req.PullOffsetBegin + 1
	isolate("ack size metric", func() {
		p.monitor.RecordAckSize(req.PartitionName, req.ConsumerGroup, size)
	})
}
