package offset

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInvertedRange = errors.New("ack range is inverted")
	ErrStaleAck      = errors.New("ack range already acknowledged")
	ErrRangeGap      = errors.New("ack range does not continue the acked sequence")
)

// ackKey identifies one ack sequence. Exclusive consumers share the
// group-wide sequence, keyed with an empty consumer id.
type ackKey struct {
	group      string
	partition  string
	consumerID string
}

// SequenceManager keeps the highest contiguously acknowledged offset per
// (group, partition, consumer).
type SequenceManager struct {
	mu    sync.RWMutex
	acked map[ackKey]int64
}

func NewSequenceManager() *SequenceManager {
	return &SequenceManager{
		acked: make(map[ackKey]int64),
	}
}

func keyOf(partition, group, consumerID string, exclusive bool) ackKey {
	if exclusive {
		consumerID = ""
	}
	return ackKey{group: group, partition: partition, consumerID: consumerID}
}

// PutAckActions records the acknowledged range [first, last]. The first ack of
// a sequence is accepted as is; later ones must start at or before the next
// expected offset and end past the current one.
func (sm *SequenceManager) PutAckActions(partition, group, consumerID string, first, last int64, exclusive bool) error {
	if last < first {
		return fmt.Errorf("%w: [%d, %d]", ErrInvertedRange, first, last)
	}

	key := keyOf(partition, group, consumerID, exclusive)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	prev, ok := sm.acked[key]
	if ok {
		if last <= prev {
			return fmt.Errorf("%w: [%d, %d] <= %d", ErrStaleAck, first, last, prev)
		}
		if first > prev+1 {
			return fmt.Errorf("%w: expected %d, got [%d, %d]", ErrRangeGap, prev+1, first, last)
		}
	}
	sm.acked[key] = last
	return nil
}

// GetAckedOffset returns the last acknowledged offset of the sequence.
func (sm *SequenceManager) GetAckedOffset(partition, group, consumerID string, exclusive bool) (int64, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if off, ok := sm.acked[keyOf(partition, group, consumerID, exclusive)]; ok {
		return off, nil
	}
	return -1, fmt.Errorf("no ack recorded for %s/%s/%s", partition, group, consumerID)
}
