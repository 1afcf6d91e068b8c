package cachingpolicy

import (
	"context"
	"net/http"
	"testing"
)

func TestMemoryReadStreamYieldsBodyThenDone(t *testing.T) {
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{}}
	rs := NewMemoryReadStream(head, []byte("hello"))

	chunk, done, err := rs.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if done {
		t.Fatal("expected non-done on first chunk delivery")
	}
	if string(chunk) != "hello" {
		t.Fatalf("got %q, want hello", chunk)
	}

	_, done, err = rs.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !done {
		t.Fatal("expected done after body exhausted")
	}
}

func TestMemoryReadStreamEmptyBody(t *testing.T) {
	rs := NewMemoryReadStream(ResponseHead{}, nil)
	chunk, done, err := rs.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !done || len(chunk) != 0 {
		t.Fatalf("expected immediate done with no chunk, got chunk=%v done=%v", chunk, done)
	}
}

func TestMemoryWriteStreamCommitsOnEnd(t *testing.T) {
	var committed []byte
	ws := NewMemoryWriteStream(func(body []byte) error {
		committed = body
		return nil
	})

	ws.Write([]byte("ab"))
	ws.Write([]byte("cd"))
	if err := ws.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if string(committed) != "abcd" {
		t.Fatalf("got %q, want abcd", committed)
	}
}

func TestMemoryWriteStreamAbortDropsBuffer(t *testing.T) {
	committed := false
	ws := NewMemoryWriteStream(func(body []byte) error {
		committed = true
		return nil
	})

	ws.Write([]byte("data"))
	if err := ws.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if err := ws.End(); err != nil {
		t.Fatalf("End after Abort: %v", err)
	}
	if committed {
		t.Fatal("expected commit not to run after Abort")
	}
}

func TestDrainReadStream(t *testing.T) {
	rs := NewMemoryReadStream(ResponseHead{}, []byte("full body"))
	body, err := drainReadStream(context.Background(), rs)
	if err != nil {
		t.Fatalf("drainReadStream: %v", err)
	}
	if string(body) != "full body" {
		t.Fatalf("got %q, want %q", body, "full body")
	}
}

func TestResponseHeadCloneIsIndependent(t *testing.T) {
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{"X-A": []string{"1"}}}
	clone := head.Clone()
	clone.Header.Set("X-A", "2")
	if head.Header.Get("X-A") != "1" {
		t.Fatal("expected Clone to deep-copy the header map")
	}
}
