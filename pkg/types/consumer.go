package types

import "time"

type SubscriberState int

const (
	SubscriberOnline SubscriberState = iota
	SubscriberOffline
)

func (s SubscriberState) String() string {
	if s == SubscriberOnline {
		return "online"
	}
	return "offline"
}

// SubscriberKey identifies one consumer instance of a group on a partition.
type SubscriberKey struct {
	PartitionName string
	ConsumerGroup string
	ConsumerID    string
}

// Subscriber is the liveness record of a single consumer instance.
type Subscriber struct {
	Key           SubscriberKey
	LastHeartbeat time.Time
	State         SubscriberState
}
