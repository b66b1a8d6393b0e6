package types

import "fmt"

// ExclusiveFlag is the tri-state exclusive-consume byte carried by ack requests.
type ExclusiveFlag int8

const (
	// ExclusiveUnset marks requests from clients that predate the flag.
	ExclusiveUnset ExclusiveFlag = -1
	ExclusiveFalse ExclusiveFlag = 0
	ExclusiveTrue  ExclusiveFlag = 1
)

func (f ExclusiveFlag) String() string {
	switch f {
	case ExclusiveUnset:
		return "unset"
	case ExclusiveFalse:
		return "false"
	case ExclusiveTrue:
		return "true"
	default:
		return fmt.Sprintf("unknown(%d)", int8(f))
	}
}

// AckRequest is a decoded consumer acknowledgment. A negative PullOffsetBegin
// marks a heartbeat-only request.
type AckRequest struct {
	PartitionName        string
	ConsumerGroup        string
	ConsumerID           string
	PullOffsetBegin      int64
	PullOffsetLast       int64
	ExclusiveConsumeFlag ExclusiveFlag
}

func (r *AckRequest) String() string {
	if r == nil {
		return "AckRequest{nil}"
	}
	return fmt.Sprintf("AckRequest{partitionName='%s', consumerGroup='%s', consumerId='%s', pullOffsetBegin=%d, pullOffsetLast=%d, isExclusiveConsume=%s}",
		r.PartitionName, r.ConsumerGroup, r.ConsumerID, r.PullOffsetBegin, r.PullOffsetLast, r.ExclusiveConsumeFlag)
}
