package cachingpolicy

import (
	"context"
	"fmt"
)

// UpstreamResponder is the minimal shape of "produce an upstream response"
// that a connector interceptor must support (§6 ConnectorInterceptor). A
// real gateway's connector interface almost certainly has more surface
// area; ReplayConnectorInterceptor only needs this much.
type UpstreamResponder interface {
	// RespondHead delivers the response head synchronously.
	RespondHead(head ResponseHead)
	// RespondChunk delivers one body chunk, in arrival order.
	RespondChunk(chunk []byte) error
	// RespondEnd signals the response is complete.
	RespondEnd()
	// RespondError surfaces a transport-level failure (§7 ReplayError).
	RespondError(err error)
}

// ReplayConnectorInterceptor is the synthetic upstream installed on a
// cache hit (§4.3). It opens no network connections: asked to produce a
// response, it emits the cached stream's head synchronously and then pumps
// body chunks in arrival order until the stream ends, forwarding any
// stream error as an upstream error.
type ReplayConnectorInterceptor struct {
	stream ReadStream
}

// NewReplayConnectorInterceptor wraps a cache hit's read stream so it can
// stand in for the real upstream connector.
func NewReplayConnectorInterceptor(stream ReadStream) *ReplayConnectorInterceptor {
	return &ReplayConnectorInterceptor{stream: stream}
}

// Connect plays the wrapped stream into responder: head first, then each
// body chunk, then either RespondEnd or RespondError. It produces exactly
// one response and always closes the underlying stream.
func (r *ReplayConnectorInterceptor) Connect(ctx context.Context, responder UpstreamResponder) {
	defer func() {
		if err := r.stream.Close(); err != nil {
			GetLogger().Debug("error closing replay stream", "error", err)
		}
	}()

	responder.RespondHead(r.stream.Head())

	for {
		chunk, done, err := r.stream.Next(ctx)
		if err != nil {
			responder.RespondError(fmt.Errorf("%w: %v", ErrReplay, err))
			return
		}
		if len(chunk) > 0 {
			if err := responder.RespondChunk(chunk); err != nil {
				responder.RespondError(fmt.Errorf("%w: %v", ErrReplay, err))
				return
			}
		}
		if done {
			responder.RespondEnd()
			return
		}
	}
}
