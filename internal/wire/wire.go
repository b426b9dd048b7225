// Package wire centralizes JSON serialization for everything that crosses
// a transport, so the codec configuration lives in exactly one place.
package wire

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/kuzzleio/go-sdk/pkg/types"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal serializes any value with the wire codec.
func Marshal(v interface{}) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire encode: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes wire data into v.
func Unmarshal(data []byte, v interface{}) error {
	if err := codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire decode: %w", err)
	}
	return nil
}

// EncodeRequest serializes a request envelope.
func EncodeRequest(req *types.Request) ([]byte, error) {
	return Marshal(req)
}

// DecodeResponse parses a raw transport payload into a response envelope.
func DecodeResponse(data []byte) (*types.Response, error) {
	resp := &types.Response{}
	if err := codec.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("wire decode response: %w", err)
	}
	return resp, nil
}
