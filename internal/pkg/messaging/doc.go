// Package messaging publishes domain events to a broker chosen at startup.
//
// Publishers are broker-agnostic: use cases hand over an OutgoingMessage and a
// destination, and the driver (NATS, Kafka, NSQ, Google Pub/Sub or a logging
// no-op) maps it to the native client.
package messaging
