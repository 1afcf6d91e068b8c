package cachingpolicy

import "net/http"

// Identity is the API-identity half of a request fingerprint. Exactly one
// of APIKey or the Org/API/Version triple is populated — never both, never
// neither (§3 invariant).
type Identity struct {
	// APIKey is set when the request is bound to a contract.
	APIKey string
	// OrgID, APIID, Version identify the API when no contract is bound.
	OrgID   string
	APIID   string
	Version string
}

// HasContract reports whether this identity came from a bound contract
// (APIKey form) rather than the bare org/api/version triple.
func (id Identity) HasContract() bool {
	return id.APIKey != ""
}

// RequestFingerprint is the read-only snapshot of an inbound request that
// the caching policy derives keys and decisions from. The gateway's
// registry, multimap, and transport layers are out of scope (§1); this is
// the minimal shape the policy actually reads.
type RequestFingerprint struct {
	Identity    Identity
	Verb        string
	Destination string
	RawQuery    string
	Header      http.Header
}

// Accept returns the request's Accept header, or "" if absent.
func (r RequestFingerprint) Accept() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Accept")
}
