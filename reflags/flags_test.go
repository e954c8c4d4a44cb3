package reflags

import "testing"

func TestParseBasic(t *testing.T) {
	f, err := Parse("gi")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Global() || !f.IgnoreCase() || f.Multiline() {
		t.Fatalf("unexpected flags: %v", f)
	}
}

func TestParseAll(t *testing.T) {
	f, err := Parse("gimsuy")
	if err != nil {
		t.Fatal(err)
	}
	for _, has := range []bool{f.Global(), f.IgnoreCase(), f.Multiline(), f.DotAll(), f.UnicodeMode(), f.Sticky()} {
		if !has {
			t.Fatalf("expected all flags set, got %v", f)
		}
	}
}

func TestDuplicateFlag(t *testing.T) {
	if _, err := Parse("gg"); err == nil {
		t.Fatal("expected error for duplicate flag")
	}
}

func TestInvalidFlag(t *testing.T) {
	if _, err := Parse("gx"); err == nil {
		t.Fatal("expected error for invalid flag")
	}
}

func TestUnicodeSetsImpliesUnicode(t *testing.T) {
	f, err := Parse("v")
	if err != nil {
		t.Fatal(err)
	}
	if !f.UnicodeMode() || !f.UnicodeSets() {
		t.Fatalf("v should imply u: %v", f)
	}
}

func TestStringRoundTrip(t *testing.T) {
	f, err := Parse("gim")
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "gim" {
		t.Fatalf("got %q", f.String())
	}
}

func TestStringUnicodeSetsOmitsU(t *testing.T) {
	f, err := Parse("v")
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "v" {
		t.Fatalf("got %q, want %q (u is implied, should not print separately)", f.String(), "v")
	}
}
