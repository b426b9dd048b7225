// Package kuzzle provides the client façade over a pluggable transport.
//
// A client wraps one protocol (websocket, http or mqtt), serializes request
// envelopes, correlates them with their response, and maps backend errors
// to Go errors. Typed API wrappers are exposed through the controller
// fields (Server, Auth, Document, Index).
//
// Example usage:
//
//	import (
//		"github.com/kuzzleio/go-sdk/pkg/kuzzle"
//		"github.com/kuzzleio/go-sdk/pkg/protocol/websocket"
//	)
//
//	k := kuzzle.New(websocket.New("localhost"))
//	if err := k.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer k.Disconnect()
//
//	now, err := k.Server.Now(ctx)
//
// When the offline queue is enabled, queries issued while the transport is
// down are parked and replayed in order once the connection comes back.
package kuzzle
