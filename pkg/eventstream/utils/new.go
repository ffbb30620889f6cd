package eventstreamutils

import (
	"fmt"

	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	Provider string
	Brokers  string
	Topic    string
}

// NewPublisher returns the publisher selected by o.Provider. An empty
// provider disables publishing.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Provider {
	case "", config.EventStreamNop:
		return nop.NewPublisher(), nil
	case config.EventStreamKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: kafka.ParseBrokers(o.Brokers),
			Topic:   o.Topic,
		})
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.Provider)
	}
}
