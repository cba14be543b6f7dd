// Package messaging is a small broker-agnostic publish/consume layer.
//
// Drivers: NATS, Kafka (segmentio/kafka-go), NSQ and an in-process memory
// broker for local runs and tests. A handler returning nil acknowledges the
// message; a non-nil error asks the broker to redeliver where it can.
package messaging
