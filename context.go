package cachingpolicy

// Context attribute names, kept process-unique per §6. Exported so a real
// gateway's attribute bag (out of scope here) can use the same strings if
// it wants to expose them to other policies in the chain.
const (
	AttrShouldCache     = "caching.should-cache"
	AttrCacheID         = "caching.cache-id"
	AttrCachedResponse  = "caching.cached-response"
)

// RequestState is the tagged record the design notes (§9) call for in place
// of inherited superclass state: everything the policy mutates across the
// request/response halves of one request's lifecycle, carried explicitly
// rather than stashed in a generic attribute bag. A real gateway may still
// want to mirror these onto its own attribute bag under the Attr* names
// above for other policies to observe; PolicyContext exposes only State(),
// so any such mirroring is done by the gateway's own context type.
type RequestState struct {
	ShouldCache    bool
	CacheID        string
	CachedResponse *ResponseHead
}

// newRequestState returns the state a request starts in at ENTER_REQUEST:
// should-cache defaults true per §3, everything else empty.
func newRequestState() *RequestState {
	return &RequestState{ShouldCache: true}
}

// PolicyContext is the narrow slice of the gateway's per-request attribute
// bag (§6) the policy needs. A real gateway's context type can satisfy this
// with simple getter/setter forwarding; httpchain's unexported policyContext
// is the adapter used by this module's own tests and examples.
type PolicyContext interface {
	State() *RequestState
}
