// internal/transport/codec.go

// Package transport carries executor-facing messages across the boundary
// between the coordinator/UI side and a page-bound execution context.
// Message kinds form a closed set; the decoder rejects anything outside it
// so an unknown kind is never observable past this point.
package transport

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/hexblade/pagepilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeRequest serializes a request envelope.
func EncodeRequest(req schemas.Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return data, nil
}

// DecodeRequest parses a request envelope and validates its kind against the
// closed set.
func DecodeRequest(data []byte) (schemas.Request, error) {
	var req schemas.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return schemas.Request{}, fmt.Errorf("failed to decode request: %w", err)
	}
	if !knownKind(req.Kind) {
		return schemas.Request{}, fmt.Errorf("unknown message kind %q", req.Kind)
	}
	return req, nil
}

// EncodeResponse serializes a response envelope.
func EncodeResponse(resp schemas.Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}

// DecodeResponse parses a response envelope.
func DecodeResponse(data []byte) (schemas.Response, error) {
	var resp schemas.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return schemas.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func knownKind(kind schemas.MessageKind) bool {
	for _, k := range schemas.KnownMessageKinds {
		if k == kind {
			return true
		}
	}
	return false
}
