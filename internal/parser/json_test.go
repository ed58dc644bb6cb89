package parser

import (
	"errors"
	"testing"
)

func TestJSONAdapterShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `"just text"`, "just text"},
		{"text field", `{"text":"hello"}`, "hello"},
		{"content field", `{"content":"hello"}`, "hello"},
		{"string array", `["a","b"]`, "a\n\nb"},
		{"object array", `[{"text":"a"},{"body":"b"}]`, "a\n\nb"},
		{"wrapped list", `{"sections":[{"text":"a"},{"text":"b"}]}`, "a\n\nb"},
	}
	var a JSONAdapter
	for _, tc := range cases {
		ext, err := a.Extract([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if ext.Text != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, ext.Text, tc.want)
		}
	}
}

func TestJSONAdapterDeterministicFieldOrder(t *testing.T) {
	var a JSONAdapter
	raw := []byte(`{"body":"third","content":"second","text":"first"}`)
	for i := 0; i < 20; i++ {
		ext, err := a.Extract(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ext.Text != "first\n\nsecond\n\nthird" {
			t.Fatalf("field order not deterministic: %q", ext.Text)
		}
	}
}

func TestJSONAdapterSchemaMismatch(t *testing.T) {
	var a JSONAdapter
	for _, raw := range []string{`{"count":3}`, `42`, `{"text":""}`, `not json at all`} {
		_, err := a.Extract([]byte(raw))
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("%s: expected ErrSchemaMismatch, got %v", raw, err)
		}
	}
}
