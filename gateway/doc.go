// Package gateway defines the boundary between grlbot and the real-time
// messaging platform it runs against. The bot core consumes these
// interfaces only; the concrete adapter (see gateway/discord) translates
// platform events and calls. Tests use the fakes in gateway/gatewaytest.
//
// The wire protocol, reconnect handling and event framing are the
// adapter's concern. The core assumes each interaction is delivered
// exactly once and already deserialized.
package gateway
