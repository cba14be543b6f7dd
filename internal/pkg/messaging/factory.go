package messaging

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverMemory = "memory"
	DriverNSQ    = "nsq"
	DriverNATS   = "nats"
	DriverKafka  = "kafka"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries per-backend settings; only the selected driver's
// section is read.
type FactoryOptions struct {
	NSQ   NSQConfig
	Kafka KafkaConfig
	NATS  NATSConfig
}

var constructors = map[string]func(FactoryOptions) (Messaging, error){
	DriverMemory: func(FactoryOptions) (Messaging, error) { return NewMemory(), nil },
	DriverNSQ:    func(o FactoryOptions) (Messaging, error) { return NewNSQ(o.NSQ) },
	DriverNATS:   func(o FactoryOptions) (Messaging, error) { return NewNATS(o.NATS) },
	DriverKafka:  func(o FactoryOptions) (Messaging, error) { return NewKafka(o.Kafka) },
}

// NewFromDriver builds the backend named by driver (case-insensitive).
func NewFromDriver(driver string, opts FactoryOptions) (Messaging, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return ctor(opts)
}
