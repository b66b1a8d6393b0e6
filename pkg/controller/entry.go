package controller

import (
	"fmt"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/pkg/types"
)

// AckEntry is the immutable unit of work handed to the ack worker. The
// connection and request header are only used to write the deferred response.
type AckEntry struct {
	partitionName      string
	consumerGroup      string
	consumerID         string
	firstPullLogOffset int64
	lastPullLogOffset  int64
	ackStartTimestamp  time.Time
	isExclusiveConsume bool

	conn          Conn
	requestHeader protocol.RemotingHeader
}

// BuildEntry copies a validated ack request into an AckEntry.
func BuildEntry(req *types.AckRequest, conn Conn, requestHeader protocol.RemotingHeader) *AckEntry {
	return &AckEntry{
		partitionName:      req.PartitionName,
		consumerGroup:      req.ConsumerGroup,
		consumerID:         req.ConsumerID,
		firstPullLogOffset: req.PullOffsetBegin,
		lastPullLogOffset:  req.PullOffsetLast,
		ackStartTimestamp:  time.Now(),
		isExclusiveConsume: req.ExclusiveConsumeFlag == types.ExclusiveTrue,
		conn:               conn,
		requestHeader:      requestHeader,
	}
}

func (e *AckEntry) PartitionName() string                  { return e.partitionName }
func (e *AckEntry) ConsumerGroup() string                  { return e.consumerGroup }
func (e *AckEntry) ConsumerID() string                     { return e.consumerID }
func (e *AckEntry) FirstPullLogOffset() int64              { return e.firstPullLogOffset }
func (e *AckEntry) LastPullLogOffset() int64               { return e.lastPullLogOffset }
func (e *AckEntry) AckStartTimestamp() time.Time           { return e.ackStartTimestamp }
func (e *AckEntry) IsExclusiveConsume() bool               { return e.isExclusiveConsume }
func (e *AckEntry) Conn() Conn                             { return e.conn }
func (e *AckEntry) RequestHeader() protocol.RemotingHeader { return e.requestHeader }

func (e *AckEntry) String() string {
	connID := "<nil>"
	if e.conn != nil {
		connID = e.conn.ID()
	}
	return fmt.Sprintf("AckEntry{partitionName='%s', consumerGroup='%s', consumerId='%s', firstPullLogOffset=%d, lastPullLogOffset=%d, conn=%s, opaque=%d}",
		e.partitionName, e.consumerGroup, e.consumerID, e.firstPullLogOffset, e.lastPullLogOffset, connID, e.requestHeader.Opaque)
}
