package cachingpolicy

import (
	"encoding/base64"
	"strings"
)

const keySeparator = ":"

// BuildKey derives the cache key for a request per §4.1. The identity
// component is either the bound contract's API key, or the org/api/version
// triple joined with ":". Destination and an optional raw query follow;
// none of it is normalized or URL-decoded — comparison is bytewise, exactly
// as the algorithm prescribes.
func BuildKey(req RequestFingerprint, includeQuery bool) string {
	var b strings.Builder

	if req.Identity.HasContract() {
		b.WriteString(req.Identity.APIKey)
	} else {
		b.WriteString(req.Identity.OrgID)
		b.WriteString(keySeparator)
		b.WriteString(req.Identity.APIID)
		b.WriteString(keySeparator)
		b.WriteString(req.Identity.Version)
	}

	b.WriteString(keySeparator)
	b.WriteString(req.Verb)
	b.WriteString(keySeparator)
	b.WriteString(req.Destination)

	if includeQuery && req.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(req.RawQuery)
	}

	return b.String()
}

// ContentTypeSuffix returns the ":"-prefixed, base64-encoded, ASCII-lowercased
// content-type suffix appended to a cache key once a response's Content-Type
// is known (§4.1). Only bytes in the ASCII range are lowercased; anything
// else passes through unchanged.
func ContentTypeSuffix(contentType string) string {
	lowered := asciiLower(contentType)
	return keySeparator + base64.StdEncoding.EncodeToString([]byte(lowered))
}

// asciiLower lowercases only the ASCII range of s, leaving any other bytes
// untouched — a plain strings.ToLower would also fold non-ASCII bytes under
// some encodings, which §4.1 explicitly forbids.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
