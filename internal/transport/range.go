package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ByteRange is an inclusive byte range, as used by the HTTP Range header.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// Header renders the Range header value.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// Validate rejects negative and inverted ranges.
func (r ByteRange) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("invalid range %d-%d: negative start", r.Start, r.End)
	}
	if r.End < r.Start {
		return fmt.Errorf("invalid range %d-%d: end before start", r.Start, r.End)
	}
	return nil
}

func (r ByteRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ExtractRange returns exactly rng.Len() bytes from a ranged GET response.
// A 206 must carry the exact range; a 200 carries the whole file and is sliced.
func ExtractRange(resp *Response, rng ByteRange) ([]byte, error) {
	want := rng.Len()
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if int64(len(resp.Body)) < want {
			return nil, &ShortBodyError{URL: resp.URL, Want: want, Got: int64(len(resp.Body))}
		}
		return resp.Body[:want], nil
	case http.StatusOK:
		if int64(len(resp.Body)) <= rng.End {
			return nil, &ShortBodyError{URL: resp.URL, Want: rng.End + 1, Got: int64(len(resp.Body))}
		}
		return resp.Body[rng.Start : rng.End+1], nil
	default:
		return nil, &HTTPError{URL: resp.URL, StatusCode: resp.StatusCode}
	}
}

// FileSize reports the length of the whole file a ranged GET response
// describes: the Content-Range total of a 206 or the body length of a 200.
// ok is false when the response does not say.
func FileSize(resp *Response) (int64, bool) {
	switch resp.StatusCode {
	case http.StatusPartialContent:
		// bytes <start>-<end>/<total>, total may be "*"
		_, total, found := strings.Cut(resp.Header.Get("Content-Range"), "/")
		if !found {
			return 0, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	case http.StatusOK:
		return int64(len(resp.Body)), true
	default:
		return 0, false
	}
}

// CheckSize returns a *SizeMismatchError when resp describes a file whose
// length differs from size. A size <= 0 means unknown and always passes.
func CheckSize(resp *Response, size int64) error {
	if size <= 0 {
		return nil
	}
	got, ok := FileSize(resp)
	if !ok || got == size {
		return nil
	}
	return &SizeMismatchError{URL: resp.URL, Want: size, Got: got}
}
