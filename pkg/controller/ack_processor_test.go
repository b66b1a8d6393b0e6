package controller_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/controller"
	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/pkg/types"
	"github.com/downfa11-org/cursus-ack/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ackCommand(t *testing.T, version int16, opaque int32, req *types.AckRequest) *protocol.RemotingCommand {
	t.Helper()
	body, err := protocol.EncodeAckRequest(version, req)
	require.NoError(t, err)
	d := protocol.NewRequest(protocol.RequestAck, version, opaque, body)
	return &protocol.RemotingCommand{Header: d.Header, Body: d.Body, ReceiveTime: time.Now()}
}

type processorFixture struct {
	worker    *fakeWorker
	checker   *fakeChecker
	monitor   *fakeMonitor
	conn      *fakeConn
	processor *controller.AckProcessor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	f := &processorFixture{
		worker:  &fakeWorker{},
		checker: &fakeChecker{},
		monitor: newFakeMonitor(),
		conn:    &fakeConn{},
	}
	p, err := controller.NewAckProcessor(f.worker, f.checker, f.monitor)
	require.NoError(t, err)
	f.processor = p
	return f
}

func TestAckProcessor_InvalidRequest(t *testing.T) {
	f := newProcessorFixture(t)

	var logs bytes.Buffer
	util.SetOutput(&logs)

	cmd := ackCommand(t, protocol.Version4, 11, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "", ConsumerID: "c1", PullOffsetBegin: 0, PullOffsetLast: 5,
	})
	result, err := f.processor.Process(f.conn, cmd)
	require.NoError(t, err)
	require.False(t, result.IsPending())

	resp := result.Datagram()
	require.NotNil(t, resp)
	assert.Equal(t, protocol.CodeBrokerError, resp.Header.Code)
	assert.Equal(t, int32(11), resp.Header.Opaque)
	assert.Equal(t, protocol.Version4, resp.Header.Version)
	assert.Empty(t, resp.Body)

	assert.Equal(t, 1, f.monitor.total)
	assert.Empty(t, f.monitor.consumer, "invalid requests only hit the volume counter")
	assert.Empty(t, f.monitor.sizes)
	assert.Empty(t, f.checker.calls)
	assert.Empty(t, f.worker.entries)

	out := logs.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "partitionName='p1'")
	assert.Contains(t, out, "consumerId='c1'")
	assert.Equal(t, 1, strings.Count(out, "receive error param ack request"))
}

func TestAckProcessor_Heartbeat(t *testing.T) {
	f := newProcessorFixture(t)

	cmd := ackCommand(t, protocol.Version3, 12, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: -1, PullOffsetLast: -1,
	})
	result, err := f.processor.Process(f.conn, cmd)
	require.NoError(t, err)
	require.False(t, result.IsPending())

	resp := result.Datagram()
	assert.Equal(t, protocol.CodeSuccess, resp.Header.Code)
	assert.Equal(t, int32(12), resp.Header.Opaque)
	assert.Equal(t, protocol.Version3, resp.Header.Version)

	assert.Equal(t, []heartbeat{{"p1", "g1", "c1"}}, f.checker.calls)
	assert.Equal(t, 1, f.monitor.total)
	assert.Equal(t, 1, f.monitor.consumer["p1/g1"])
	assert.Empty(t, f.monitor.sizes, "heartbeats have no range to size")
	assert.Empty(t, f.worker.entries)
}

func TestAckProcessor_RealAck(t *testing.T) {
	f := newProcessorFixture(t)

	before := time.Now()
	cmd := ackCommand(t, protocol.Version4, 13, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 100, PullOffsetLast: 104,
		ExclusiveConsumeFlag: types.ExclusiveFalse,
	})
	result, err := f.processor.Process(f.conn, cmd)
	require.NoError(t, err)
	require.True(t, result.IsPending())
	assert.Nil(t, result.Datagram())

	require.Len(t, f.worker.entries, 1)
	entry := f.worker.entries[0]
	assert.Equal(t, "p1", entry.PartitionName())
	assert.Equal(t, "g1", entry.ConsumerGroup())
	assert.Equal(t, "c1", entry.ConsumerID())
	assert.Equal(t, int64(100), entry.FirstPullLogOffset())
	assert.Equal(t, int64(104), entry.LastPullLogOffset())
	assert.False(t, entry.IsExclusiveConsume())
	assert.Same(t, f.conn, entry.Conn())
	assert.Equal(t, cmd.Header, entry.RequestHeader())
	assert.False(t, entry.AckStartTimestamp().Before(before))

	assert.Equal(t, []ackSize{{"p1", "g1", 5}}, f.monitor.sizes)
	assert.Equal(t, []heartbeat{{"p1", "g1", "c1"}}, f.checker.calls)
	assert.Equal(t, 1, f.monitor.consumer["p1/g1"])
	assert.Empty(t, f.conn.written, "real acks are answered by the worker")
}

func TestAckProcessor_InvertedRangeIsNotRejected(t *testing.T) {
	f := newProcessorFixture(t)

	cmd := ackCommand(t, protocol.Version4, 14, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 10, PullOffsetLast: 7,
	})
	result, err := f.processor.Process(f.conn, cmd)
	require.NoError(t, err)
	assert.True(t, result.IsPending())
	require.Len(t, f.worker.entries, 1)
	assert.Equal(t, []ackSize{{"p1", "g1", -2}}, f.monitor.sizes)
}

func TestAckProcessor_ExclusiveMapping(t *testing.T) {
	tests := []struct {
		version int16
		flag    types.ExclusiveFlag
		want    bool
	}{
		{protocol.Version4, types.ExclusiveTrue, true},
		{protocol.Version4, types.ExclusiveFalse, false},
		{protocol.Version4, types.ExclusiveUnset, false},
		{protocol.Version3, types.ExclusiveTrue, false},
	}

	for _, tt := range tests {
		f := newProcessorFixture(t)
		cmd := ackCommand(t, tt.version, 1, &types.AckRequest{
			PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 1, PullOffsetLast: 1,
			ExclusiveConsumeFlag: tt.flag,
		})
		_, err := f.processor.Process(f.conn, cmd)
		require.NoError(t, err)
		require.Len(t, f.worker.entries, 1)
		assert.Equal(t, tt.want, f.worker.entries[0].IsExclusiveConsume(), "version %d flag %v", tt.version, tt.flag)
	}
}

func TestAckProcessor_DecodeFailure(t *testing.T) {
	f := newProcessorFixture(t)

	cmd := ackCommand(t, protocol.Version4, 15, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 1, PullOffsetLast: 2,
	})
	cmd.Body = cmd.Body[:len(cmd.Body)-3]

	result, err := f.processor.Process(f.conn, cmd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrMalformedPayload))
	assert.Nil(t, result.Datagram())
	assert.False(t, result.IsPending())

	assert.Equal(t, 1, f.monitor.total, "volume counter counts every attempt")
	assert.Empty(t, f.checker.calls)
	assert.Empty(t, f.worker.entries)
}

func TestAckProcessor_DispatchFailurePropagates(t *testing.T) {
	f := newProcessorFixture(t)
	mailboxFull := errors.New("mailbox full")
	f.worker.err = mailboxFull

	cmd := ackCommand(t, protocol.Version4, 16, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 1, PullOffsetLast: 2,
	})
	result, err := f.processor.Process(f.conn, cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, mailboxFull)
	assert.False(t, result.IsPending())
	assert.Nil(t, result.Datagram())
}

func TestAckProcessor_CollaboratorPanicsAreIsolated(t *testing.T) {
	f := newProcessorFixture(t)
	f.monitor.panic = true
	f.checker.panic = true

	heartbeatCmd := ackCommand(t, protocol.Version4, 17, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: -1, PullOffsetLast: -1,
	})
	result, err := f.processor.Process(f.conn, heartbeatCmd)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeSuccess, result.Datagram().Header.Code)

	ackCmd := ackCommand(t, protocol.Version4, 18, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 0, PullOffsetLast: 9,
	})
	result, err = f.processor.Process(f.conn, ackCmd)
	require.NoError(t, err)
	assert.True(t, result.IsPending())
	assert.Len(t, f.worker.entries, 1)
}

func TestNewAckProcessor(t *testing.T) {
	_, err := controller.NewAckProcessor(nil, nil, nil)
	require.Error(t, err)

	w := &fakeWorker{}
	p, err := controller.NewAckProcessor(w, nil, nil)
	require.NoError(t, err)

	cmd := ackCommand(t, protocol.Version4, 19, &types.AckRequest{
		PartitionName: "p1", ConsumerGroup: "g1", ConsumerID: "c1", PullOffsetBegin: 3, PullOffsetLast: 4,
	})
	result, err := p.Process(&fakeConn{}, cmd)
	require.NoError(t, err)
	assert.True(t, result.IsPending())
	assert.Len(t, w.entries, 1)
}
