package cachingpolicy

import (
	"net/http"
	"testing"
)

func TestEncodeDecodeEntryRoundTrip(t *testing.T) {
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{"Content-Type": []string{"application/json"}}}
	body := []byte(`{"ok":true}`)

	blob, err := EncodeEntry(head, body)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}

	gotHead, gotBody, err := DecodeEntry(blob)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if gotHead.StatusCode != head.StatusCode {
		t.Errorf("status = %d, want %d", gotHead.StatusCode, head.StatusCode)
	}
	if gotHead.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content-type = %q", gotHead.Header.Get("Content-Type"))
	}
	if string(gotBody) != string(body) {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
}

func TestDecodeEntryRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeEntry([]byte("not a gob stream")); err == nil {
		t.Fatal("expected an error decoding garbage")
	}
}
