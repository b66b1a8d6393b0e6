package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/downfa11-org/cursus-ack/pkg/types"
	"github.com/downfa11-org/cursus-ack/util"
)

var ErrMalformedPayload = errors.New("protocol: malformed payload")

// DecodeAckRequest decodes an ack request body. The exclusive-consume byte is
// only read when the header version supports tags. Trailing bytes are ignored
// so newer clients can append fields.
func DecodeAckRequest(header RemotingHeader, body []byte) (*types.AckRequest, error) {
	r := bytes.NewReader(body)

	partitionName, err := util.ReadShortString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: partition name: %w", ErrMalformedPayload, err)
	}
	consumerGroup, err := util.ReadShortString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: consumer group: %w", ErrMalformedPayload, err)
	}
	consumerID, err := util.ReadShortString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: consumer id: %w", ErrMalformedPayload, err)
	}
	begin, err := util.ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("%w: pull offset begin: %w", ErrMalformedPayload, err)
	}
	last, err := util.ReadInt64(r)
	if err != nil {
		return nil, fmt.Errorf("%w: pull offset last: %w", ErrMalformedPayload, err)
	}

	flag := types.ExclusiveUnset
	if SupportTags(header.Version) {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: exclusive consume flag: %w", ErrMalformedPayload, err)
		}
		flag = types.ExclusiveFlag(int8(b))
	}

	return &types.AckRequest{
		PartitionName:        partitionName,
		ConsumerGroup:        consumerGroup,
		ConsumerID:           consumerID,
		PullOffsetBegin:      begin,
		PullOffsetLast:       last,
		ExclusiveConsumeFlag: flag,
	}, nil
}

// EncodeAckRequest is the inverse of DecodeAckRequest for the given version.
func EncodeAckRequest(version int16, req *types.AckRequest) ([]byte, error) {
	var buf bytes.Buffer
	for _, s := range []string{req.PartitionName, req.ConsumerGroup, req.ConsumerID} {
		if err := util.WriteShortString(&buf, s); err != nil {
			return nil, fmt.Errorf("encode ack request: %w", err)
		}
	}
	util.WriteInt64(&buf, req.PullOffsetBegin)
	util.WriteInt64(&buf, req.PullOffsetLast)
	if SupportTags(version) {
		buf.WriteByte(byte(req.ExclusiveConsumeFlag))
	}
	return buf.Bytes(), nil
}
