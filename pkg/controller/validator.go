package controller

import (
	"strings"

	"github.com/downfa11-org/cursus-ack/pkg/types"
)

type Classification int

const (
	ClassInvalid Classification = iota
	ClassHeartbeat
	ClassRealAck
)

func (c Classification) String() string {
	switch c {
	case ClassInvalid:
		return "invalid"
	case ClassHeartbeat:
		return "heartbeat"
	case ClassRealAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Classify sorts an ack request into invalid, heartbeat or real ack. The
// identifying fields are checked first; the reason names the empty ones.
func Classify(req *types.AckRequest) (Classification, string) {
	if req == nil {
		return ClassInvalid, "nil request"
	}

	var missing []string
	if req.PartitionName == "" {
		missing = append(missing, "partitionName")
	}
	if req.ConsumerGroup == "" {
		missing = append(missing, "consumerGroup")
	}
	if req.ConsumerID == "" {
		missing = append(missing, "consumerId")
	}
	if len(missing) > 0 {
		return ClassInvalid, "empty " + strings.Join(missing, ", ")
	}

	if req.PullOffsetBegin < 0 {
		return ClassHeartbeat, ""
	}
	return ClassRealAck, ""
}
