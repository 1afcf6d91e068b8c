package cachingpolicy

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// wireEntry is the on-disk/on-wire envelope backends under store/* use to
// serialize a ResponseHead+body pair into the single blob most key/value
// stores actually deal in.
type wireEntry struct {
	StatusCode int
	Header     map[string][]string
	Body       []byte
}

// EncodeEntry serializes head and body into a single blob suitable for
// backends whose native storage is an opaque byte value (Redis, Memcached,
// disk, LevelDB, Mongo, Postgres, NATS KV, Hazelcast, blob storage).
func EncodeEntry(head ResponseHead, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	entry := wireEntry{StatusCode: head.StatusCode, Header: map[string][]string(head.Header), Body: body}
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, fmt.Errorf("cachingpolicy: failed to encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEntry reverses EncodeEntry.
func DecodeEntry(blob []byte) (ResponseHead, []byte, error) {
	var entry wireEntry
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&entry); err != nil {
		return ResponseHead{}, nil, fmt.Errorf("cachingpolicy: failed to decode cache entry: %w", err)
	}
	return ResponseHead{StatusCode: entry.StatusCode, Header: entry.Header}, entry.Body, nil
}
