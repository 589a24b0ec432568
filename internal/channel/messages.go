// Package channel connects meander to the capture daemon: a websocket
// push feed for deltas and offload traffic, and an HTTP client for
// snapshot polling and user actions.
package channel

import (
	"encoding/json"

	"github.com/runnerr0/meander/internal/model"
	"github.com/runnerr0/meander/internal/offload"
)

// Message types on the push feed.
const (
	TypeStateSnapshot   = "state_snapshot"
	TypeStateDelta      = "state_delta"
	TypeOffloadRequest  = "offload_request"
	TypeOffloadResponse = "offload_response"
)

// Message is the envelope for every frame on the push feed. Snapshots
// stay raw: the daemon may speak any schema generation and the
// normalizer decides what to make of it.
type Message struct {
	Type     string            `json:"type"`
	State    json.RawMessage   `json:"state,omitempty"`
	Delta    *model.Delta      `json:"delta,omitempty"`
	Request  *offload.Request  `json:"request,omitempty"`
	Response *offload.Response `json:"response,omitempty"`
}
