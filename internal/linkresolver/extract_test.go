package linkresolver

import (
	"reflect"
	"testing"
)

func TestExtractURLsStripsTrailingPunctuation(t *testing.T) {
	got := ExtractURLs("see https://example.com/path. also (https://go.dev/doc)!")
	want := []string{"https://example.com/path", "https://go.dev/doc"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractURLs() = %v, want %v", got, want)
	}
}

func TestExtractURLsDeduplicates(t *testing.T) {
	got := ExtractURLs("https://example.com and again https://example.com")
	if len(got) != 1 {
		t.Fatalf("ExtractURLs() length = %d, want 1", len(got))
	}
}

func TestExtractURLsNoMatch(t *testing.T) {
	got := ExtractURLs("no links in this message at all")
	if got != nil {
		t.Fatalf("ExtractURLs() = %v, want nil", got)
	}
}
