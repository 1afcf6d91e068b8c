// Package httpchain is a small net/http-based adapter for the collaborator
// interfaces cachingpolicy declares as externally provided (Chain,
// PolicyContext, UpstreamResponder, DownstreamWriter). A real API gateway
// supplies its own chain/attribute-bag/connector scaffolding; this package
// exists so the state machine in cachingpolicy is end-to-end testable, and
// usable in a small standalone demo, without one.
package httpchain

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gatewaycore/cachingpolicy"
)

// Upstream fetches the real response for a request the policy did not
// serve from cache. It has the same shape as http.RoundTripper.RoundTrip
// so an *http.Client's transport can be used directly.
type Upstream func(r *http.Request) (*http.Response, error)

// Handler wires a cachingpolicy.Policy into an ordinary net/http server.
// Each inbound request either replays a cached hit or is forwarded to
// Upstream, with the response teed into the cache store as it is written
// back to the client.
type Handler struct {
	Policy      cachingpolicy.Policy
	Upstream    Upstream
	// Identify resolves the Identity component of a request's fingerprint.
	// If nil, every request is treated as org="", api="", version="" —
	// fine for single-API demos, wrong for anything multi-tenant.
	Identify func(r *http.Request) cachingpolicy.Identity
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pctx := &policyContext{state: &cachingpolicy.RequestState{ShouldCache: true}}
	fp := h.fingerprint(r)

	c := &chain{handler: h, w: w, r: r, pctx: pctx}
	if err := h.Policy.OnRequest(ctx, pctx, c, fp); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if c.abortErr != nil {
		http.Error(w, c.abortErr.Error(), http.StatusBadGateway)
		return
	}
	if c.respErr != nil {
		http.Error(w, c.respErr.Error(), http.StatusBadGateway)
	}
}

func (h *Handler) fingerprint(r *http.Request) cachingpolicy.RequestFingerprint {
	var identity cachingpolicy.Identity
	if h.Identify != nil {
		identity = h.Identify(r)
	}
	return cachingpolicy.RequestFingerprint{
		Identity:    identity,
		Verb:        r.Method,
		Destination: r.URL.Path,
		RawQuery:    r.URL.RawQuery,
		Header:      r.Header,
	}
}

// chain implements cachingpolicy.Chain against one in-flight request.
type chain struct {
	handler     *Handler
	w           http.ResponseWriter
	r           *http.Request
	pctx        *policyContext
	interceptor *cachingpolicy.ReplayConnectorInterceptor

	abortErr error
	respErr  error
}

// Continue drives the response, either by replaying an installed
// interceptor or by calling through to Upstream, and feeds the resulting
// head/chunks into the policy's response phase and then to the client.
func (c *chain) Continue(ctx context.Context, req cachingpolicy.RequestFingerprint) error {
	resp := &responder{ctx: ctx, policy: c.handler.Policy, pctx: c.pctx, w: c.w}

	if c.interceptor != nil {
		c.interceptor.Connect(ctx, resp)
	} else {
		c.callUpstream(ctx, resp)
	}

	c.respErr = resp.err
	return resp.err
}

func (c *chain) Abort(err error) {
	c.abortErr = err
}

func (c *chain) SetConnectorInterceptor(interceptor *cachingpolicy.ReplayConnectorInterceptor) {
	c.interceptor = interceptor
}

func (c *chain) callUpstream(ctx context.Context, resp *responder) {
	if c.handler.Upstream == nil {
		resp.RespondError(fmt.Errorf("httpchain: no upstream configured"))
		return
	}

	upstreamResp, err := c.handler.Upstream(c.r)
	if err != nil {
		resp.RespondError(err)
		return
	}
	defer upstreamResp.Body.Close()

	resp.RespondHead(cachingpolicy.ResponseHead{
		StatusCode: upstreamResp.StatusCode,
		Header:     upstreamResp.Header,
	})
	if resp.err != nil {
		return
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := upstreamResp.Body.Read(buf)
		if n > 0 {
			if err := resp.RespondChunk(buf[:n]); err != nil {
				resp.RespondError(err)
				return
			}
		}
		if readErr == io.EOF {
			resp.RespondEnd()
			return
		}
		if readErr != nil {
			resp.RespondError(readErr)
			return
		}
	}
}

// policyContext implements cachingpolicy.PolicyContext with a single
// request-scoped state record.
type policyContext struct {
	state *cachingpolicy.RequestState
}

func (p *policyContext) State() *cachingpolicy.RequestState { return p.state }

// responder implements cachingpolicy.UpstreamResponder: it writes the head
// and drives cachingpolicy.OnResponse once, then forwards every chunk to
// either the tee the policy installs or directly to the client.
type responder struct {
	ctx    context.Context
	policy cachingpolicy.Policy
	pctx   *policyContext
	w      http.ResponseWriter

	sink cachingpolicy.DownstreamWriter
	err  error
}

func (r *responder) RespondHead(head cachingpolicy.ResponseHead) {
	for k, vs := range head.Header {
		for _, v := range vs {
			r.w.Header().Add(k, v)
		}
	}
	r.w.WriteHeader(head.StatusCode)

	downstream := &responseWriterSink{w: r.w}
	teeFactory, err := r.policy.OnResponse(r.ctx, r.pctx, head)
	if err != nil {
		r.err = err
		return
	}
	if teeFactory != nil {
		r.sink = teeFactory(downstream)
	} else {
		r.sink = downstream
	}
}

func (r *responder) RespondChunk(chunk []byte) error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Write(chunk)
}

func (r *responder) RespondEnd() {
	if r.sink != nil {
		if err := r.sink.End(); err != nil {
			r.err = err
		}
	}
}

func (r *responder) RespondError(err error) {
	r.err = err
}

// responseWriterSink adapts an http.ResponseWriter to DownstreamWriter.
type responseWriterSink struct {
	w http.ResponseWriter
}

func (s *responseWriterSink) Write(chunk []byte) error {
	_, err := s.w.Write(chunk)
	return err
}

func (s *responseWriterSink) End() error { return nil }

var (
	_ cachingpolicy.Chain             = (*chain)(nil)
	_ cachingpolicy.PolicyContext     = (*policyContext)(nil)
	_ cachingpolicy.UpstreamResponder = (*responder)(nil)
	_ cachingpolicy.DownstreamWriter  = (*responseWriterSink)(nil)
	_ http.Handler                    = (*Handler)(nil)
)
