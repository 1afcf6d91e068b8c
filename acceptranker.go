package cachingpolicy

import (
	"strconv"
	"strings"
)

// MediaRange is a single parsed element of an Accept header: a type/subType
// pair with its resolved quality factor.
type MediaRange struct {
	Type    string
	SubType string
	Q       float64
}

// String returns the "type/subType" form, verbatim — no wildcard resolution
// is performed, so a "*/*" range still prints as "*/*" (§4.2).
func (m MediaRange) String() string {
	return m.Type + "/" + m.SubType
}

// Highest parses an Accept header per §4.2 and returns the highest-ranked
// media range. Segments are split on ",". Each segment is "type/subType"
// plus optional ";param=value" pairs; a missing "q" defaults to 1.0.
// Malformed segments are skipped silently. An empty or absent header, or a
// header from which no segment survives parsing, returns (MediaRange{}, false).
//
// Ranking sorts ascending by q and returns the last element, so equal-q
// segments resolve in favor of whichever was listed later in the header —
// this is the source's observed (if possibly incidental) behavior and is
// preserved deliberately; see DESIGN.md.
func Highest(acceptHeader string) (MediaRange, bool) {
	ranges := parseAccept(acceptHeader)
	if len(ranges) == 0 {
		return MediaRange{}, false
	}

	// Stable sort ascending by Q: ties keep their relative (input) order,
	// so the last element after sorting is the latest-listed top scorer.
	stableSortByQAscending(ranges)

	return ranges[len(ranges)-1], true
}

func parseAccept(acceptHeader string) []MediaRange {
	var out []MediaRange
	for _, segment := range strings.Split(acceptHeader, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		parts := strings.Split(segment, ";")
		mediaType := strings.TrimSpace(parts[0])
		typeAndSub := strings.SplitN(mediaType, "/", 2)
		if len(typeAndSub) != 2 || typeAndSub[0] == "" || typeAndSub[1] == "" {
			continue
		}

		q := 1.0
		for _, param := range parts[1:] {
			param = strings.TrimSpace(param)
			name, value, hasValue := strings.Cut(param, "=")
			if !hasValue || strings.TrimSpace(name) != "q" {
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				continue
			}
			q = parsed
		}

		out = append(out, MediaRange{
			Type:    typeAndSub[0],
			SubType: typeAndSub[1],
			Q:       q,
		})
	}
	return out
}

// stableSortByQAscending is a simple stable insertion sort: the input sizes
// involved (header media ranges) are always small, and stability is the
// entire point — sort.SliceStable would also work but this keeps the
// tie-break behavior explicit and auditable.
func stableSortByQAscending(ranges []MediaRange) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j-1].Q > ranges[j].Q; j-- {
			ranges[j-1], ranges[j] = ranges[j], ranges[j-1]
		}
	}
}
