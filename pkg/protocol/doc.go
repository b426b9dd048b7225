// Package protocol defines the pluggable transport abstraction used by the
// client to reach a Kuzzle backend.
//
// A Protocol owns the connection lifecycle and the request/response
// correlation for one transport mechanism. Three implementations live in
// the subpackages:
//   - websocket: full-duplex, correlates concurrent in-flight requests by
//     request identifier and reconnects automatically
//   - http: stateless request/response over the backend's generic query
//     endpoint
//   - mqtt: publish/subscribe over the backend's request and response
//     topics
//
// Transports report lifecycle transitions (connected, disconnected,
// reconnected) to registered listeners so that higher layers can react,
// e.g. by replaying queued requests.
package protocol
