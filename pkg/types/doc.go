// Package types defines the wire-level data shapes exchanged with a Kuzzle
// backend: the Request envelope, the Response envelope, and the error
// taxonomy shared by every transport.
//
// Requests address the backend through its controller/action RPC scheme.
// A request carries at most one response; a response may carry a result,
// an error, or neither, and callers are expected to handle the
// missing-result case explicitly.
//
// Example usage:
//
//	import "github.com/kuzzleio/go-sdk/pkg/types"
//
//	req := types.NewRequest("server", "now")
//	// ... send through a client, then:
//	if resp.Result == nil {
//		// no payload came back
//	}
package types
