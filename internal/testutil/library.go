package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Book is a plain-text book wrapped in Gutenberg header and footer lines.
type Book struct {
	ID    string
	Title string
	Text  string
}

// File returns the full file as served by a mirror.
func (b Book) File() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "The Project Gutenberg eBook of %s\n\n", b.Title)
	fmt.Fprintf(&buf, "*** START OF THE PROJECT GUTENBERG EBOOK %s ***\n\n", strings.ToUpper(b.Title))
	buf.WriteString(b.Text)
	fmt.Fprintf(&buf, "\n\n*** END OF THE PROJECT GUTENBERG EBOOK %s ***\n", strings.ToUpper(b.Title))
	buf.WriteString("Updated editions will replace the previous one.\n")
	return buf.Bytes()
}

// PrideAndPrejudice is a short fixture book.
var PrideAndPrejudice = Book{
	ID:    "1342",
	Title: "Pride and Prejudice",
	Text: "It is a truth universally acknowledged, that a single man in possession " +
		"of a good fortune, must be in want of a wife.",
}

// Library is an httptest server laid out like a Gutenberg cache mirror:
// /cache/epub/<id>/pg<id>.txt. Requests honor Range headers.
type Library struct {
	*httptest.Server

	mu    sync.Mutex
	books map[string][]byte
	hits  int
}

// NewLibrary starts a library serving books. It is closed on test cleanup.
func NewLibrary(t *testing.T, books ...Book) *Library {
	t.Helper()
	l := &Library{books: make(map[string][]byte)}
	for _, b := range books {
		l.books[b.ID] = b.File()
	}
	l.Server = httptest.NewServer(http.HandlerFunc(l.serve))
	t.Cleanup(l.Close)
	return l
}

// OriginTemplate returns an origin URL template pointing at the library.
func (l *Library) OriginTemplate() string {
	return l.URL + "/cache/epub/{id}/pg{id}.txt"
}

// Hits returns the number of requests served.
func (l *Library) Hits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits
}

func (l *Library) serve(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	l.hits++
	l.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/cache/epub/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, _, _ := strings.Cut(rest, "/")
	data, found := l.books[id]
	if !found || r.URL.Path != "/cache/epub/"+id+"/pg"+id+".txt" {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, "pg"+id+".txt", time.Time{}, bytes.NewReader(data))
}
