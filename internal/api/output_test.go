package api

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	BookID    string `json:"book_id"`
	ByteStart int64  `json:"byte_start"`
	Next      *int64 `json:"next_byte_start"`
}

func TestOutputTo(t *testing.T) {
	data := sample{BookID: "1342", ByteStart: 500}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
			t.Fatalf("OutputTo() error = %v", err)
		}
		want := "{\n  \"book_id\": \"1342\",\n  \"byte_start\": 500,\n  \"next_byte_start\": null\n}\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("yaml uses json names in field order", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
			t.Fatalf("OutputTo() error = %v", err)
		}
		got := buf.String()
		i, j := strings.Index(got, "book_id: \"1342\""), strings.Index(got, "byte_start: 500")
		if i < 0 || j < 0 || i > j {
			t.Errorf("unexpected yaml:\n%s", got)
		}
		if !strings.Contains(got, "next_byte_start: null") {
			t.Errorf("missing null field:\n%s", got)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := OutputTo(&bytes.Buffer{}, OutputFormat("xml"), data); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSetOutputFormat(t *testing.T) {
	t.Cleanup(func() { SetOutputFormat("yaml") })

	SetOutputFormat("json")
	if GetOutputFormat() != OutputFormatJSON {
		t.Errorf("format = %s, want json", GetOutputFormat())
	}
	SetOutputFormat("toml")
	if GetOutputFormat() != DefaultOutput {
		t.Errorf("format = %s, want default", GetOutputFormat())
	}
}
