package storage

import "testing"

func TestSanitizeUTF8(t *testing.T) {
	in := "hello\x00world\xffbad"
	got := SanitizeUTF8(in)

	if got != "helloworldbad" {
		t.Fatalf("SanitizeUTF8(%q) = %q, want %q", in, got, "helloworldbad")
	}
}

func TestSanitizeUTF8Clean(t *testing.T) {
	in := "clean text with emoji 🚀"
	if got := SanitizeUTF8(in); got != in {
		t.Fatalf("SanitizeUTF8(%q) = %q, want unchanged", in, got)
	}
}

func TestToUUIDRoundTrip(t *testing.T) {
	const id = "123e4567-e89b-12d3-a456-426614174000"

	u := toUUID(id)
	if !u.Valid {
		t.Fatal("toUUID() produced invalid UUID for valid input")
	}

	if got := fromUUID(u); got != id {
		t.Fatalf("fromUUID(toUUID(%q)) = %q, want %q", id, got, id)
	}
}

func TestToUUIDInvalid(t *testing.T) {
	u := toUUID("not-a-uuid")
	if u.Valid {
		t.Fatal("toUUID() should be invalid for malformed input")
	}
}

func TestToTextEmptyIsInvalid(t *testing.T) {
	txt := toText("")
	if txt.Valid {
		t.Fatal("toText(\"\") should be invalid")
	}

	if got := fromText(txt); got != "" {
		t.Fatalf("fromText(toText(\"\")) = %q, want empty", got)
	}
}
