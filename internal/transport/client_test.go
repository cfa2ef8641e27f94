package transport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func serveDoc(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "doc.txt", time.Time{}, bytes.NewReader(data))
	}
}

func TestClient_GetRange(t *testing.T) {
	data := []byte("0123456789abcdefghij")

	t.Run("returns exact inclusive range", func(t *testing.T) {
		headers := make(chan http.Header, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers <- r.Header.Clone()
			serveDoc(data)(w, r)
		}))
		defer server.Close()

		c := NewClient(Config{})
		rng := ByteRange{Start: 3, End: 7}
		resp, err := c.GetRange(context.Background(), server.URL+"/doc.txt", rng)
		if err != nil {
			t.Fatalf("GetRange() error = %v", err)
		}
		h := <-headers
		gotRange, gotEncoding := h.Get("Range"), h.Get("Accept-Encoding")
		if gotRange != "bytes=3-7" {
			t.Errorf("Range header = %q, want bytes=3-7", gotRange)
		}
		if gotEncoding != "identity" {
			t.Errorf("Accept-Encoding = %q, want identity", gotEncoding)
		}
		body, err := ExtractRange(resp, rng)
		if err != nil {
			t.Fatalf("ExtractRange() error = %v", err)
		}
		if string(body) != "34567" {
			t.Errorf("body = %q, want 34567", body)
		}
	})

	t.Run("head reports content length", func(t *testing.T) {
		server := httptest.NewServer(serveDoc(data))
		defer server.Close()

		resp, err := NewClient(Config{}).Head(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Head() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if resp.ContentLength != int64(len(data)) {
			t.Errorf("ContentLength = %d, want %d", resp.ContentLength, len(data))
		}
		if resp.Body != nil {
			t.Error("expected nil body for HEAD")
		}
	})
}

func TestClient_Redirects(t *testing.T) {
	data := []byte("the quick brown fox")

	t.Run("follows relative redirects and keeps range", func(t *testing.T) {
		var (
			mu     sync.Mutex
			ranges []string
		)
		record := func(r *http.Request) {
			mu.Lock()
			ranges = append(ranges, r.Header.Get("Range"))
			mu.Unlock()
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			w.Header().Set("Location", "/files/b")
			w.WriteHeader(http.StatusFound)
		})
		mux.HandleFunc("/files/b", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			w.Header().Set("Location", "c")
			w.WriteHeader(http.StatusMovedPermanently)
		})
		mux.HandleFunc("/files/c", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			serveDoc(data)(w, r)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		rng := ByteRange{Start: 4, End: 8}
		resp, err := NewClient(Config{}).GetRange(context.Background(), server.URL+"/a", rng)
		if err != nil {
			t.Fatalf("GetRange() error = %v", err)
		}
		if resp.Hops != 2 {
			t.Errorf("Hops = %d, want 2", resp.Hops)
		}
		if !strings.HasSuffix(resp.URL, "/files/c") {
			t.Errorf("final URL = %s, want suffix /files/c", resp.URL)
		}
		mu.Lock()
		defer mu.Unlock()
		if len(ranges) != 3 {
			t.Errorf("requests = %d, want 3", len(ranges))
		}
		for i, r := range ranges {
			if r != "bytes=4-8" {
				t.Errorf("hop %d Range = %q, want bytes=4-8", i, r)
			}
		}
		body, err := ExtractRange(resp, rng)
		if err != nil {
			t.Fatalf("ExtractRange() error = %v", err)
		}
		if string(body) != "quick" {
			t.Errorf("body = %q, want quick", body)
		}
	})

	t.Run("five hops are allowed", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := hits.Add(1)
			if n <= 5 {
				w.Header().Set("Location", "/next")
				w.WriteHeader(http.StatusTemporaryRedirect)
				return
			}
			serveDoc(data)(w, r)
		}))
		defer server.Close()

		resp, err := NewClient(Config{}).Head(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Head() error = %v", err)
		}
		if resp.Hops != 5 {
			t.Errorf("Hops = %d, want 5", resp.Hops)
		}
	})

	t.Run("sixth hop fails without another request", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Location", "/loop")
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		_, err := NewClient(Config{}).Head(context.Background(), server.URL)
		var tmr *TooManyRedirectsError
		if !errors.As(err, &tmr) {
			t.Fatalf("expected TooManyRedirectsError, got %v", err)
		}
		if tmr.Hops != 6 {
			t.Errorf("Hops = %d, want 6", tmr.Hops)
		}
		if got := hits.Load(); got != 6 {
			t.Errorf("server hits = %d, want 6", got)
		}
		if !IsFatal(err) {
			t.Error("IsFatal() = false for TooManyRedirectsError")
		}
	})
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(Config{}).Head(ctx, server.URL)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !ne.Timeout() {
		t.Errorf("Timeout() = false for %v", err)
	}
	if IsFatal(err) {
		t.Error("timeouts must be retryable")
	}
}

func TestExtractRange(t *testing.T) {
	full := []byte("abcdefghij")
	tests := []struct {
		name    string
		resp    *Response
		rng     ByteRange
		want    string
		wantErr bool
	}{
		{"partial content", &Response{StatusCode: 206, Body: []byte("cde")}, ByteRange{2, 4}, "cde", false},
		{"full body sliced", &Response{StatusCode: 200, Body: full}, ByteRange{2, 4}, "cde", false},
		{"short partial", &Response{StatusCode: 206, Body: []byte("cd")}, ByteRange{2, 4}, "", true},
		{"short full body", &Response{StatusCode: 200, Body: full[:4]}, ByteRange{2, 4}, "", true},
		{"not found", &Response{StatusCode: 404}, ByteRange{2, 4}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractRange(tt.resp, tt.rng)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractRange() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestByteRange(t *testing.T) {
	r := ByteRange{Start: 10, End: 19}
	if r.Len() != 10 {
		t.Errorf("Len() = %d, want 10", r.Len())
	}
	if r.Header() != "bytes=10-19" {
		t.Errorf("Header() = %q", r.Header())
	}
	if err := (ByteRange{Start: 5, End: 4}).Validate(); err == nil {
		t.Error("expected error for inverted range")
	}
	if err := (ByteRange{Start: -1, End: 4}).Validate(); err == nil {
		t.Error("expected error for negative start")
	}
}

func TestCheckSize(t *testing.T) {
	partial := func(contentRange string) *Response {
		return &Response{
			URL:        "http://m/book.txt",
			StatusCode: http.StatusPartialContent,
			Header:     http.Header{"Content-Range": []string{contentRange}},
			Body:       []byte("0123456789"),
		}
	}
	full := &Response{URL: "http://m/book.txt", StatusCode: http.StatusOK, Body: bytes.Repeat([]byte("x"), 120)}

	tests := []struct {
		name    string
		resp    *Response
		size    int64
		wantErr bool
	}{
		{"206 matching total", partial("bytes 0-9/100"), 100, false},
		{"206 different total", partial("bytes 0-9/120"), 100, true},
		{"206 unknown total", partial("bytes 0-9/*"), 100, false},
		{"206 without header", &Response{StatusCode: http.StatusPartialContent, Body: []byte("0123456789")}, 100, false},
		{"200 matching body", full, 120, false},
		{"200 different body", full, 100, true},
		{"size unknown", partial("bytes 0-9/120"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSize(tt.resp, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckSize() error = %v, wantErr %v", err, tt.wantErr)
			}
			var mismatch *SizeMismatchError
			if tt.wantErr && (!errors.As(err, &mismatch) || mismatch.Want != tt.size) {
				t.Errorf("error = %#v, want SizeMismatchError", err)
			}
		})
	}
}
