package jsregex

import (
	"reflect"
	"strconv"
	"testing"
)

func TestReplaceAllLiteral(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		repl    string
		want    string
	}{
		{`\d+`, "age: 42", "XX", "age: XX"},
		{`\d+`, "1 2 3", "X", "X X X"},
		{`\d+`, "abc", "X", "abc"},
		{`a`, "aaa", "b", "bbb"},
		{`\s+`, "a  b   c", " ", "a b c"},
	}
	for _, tt := range tests {
		re := MustCompile(tt.pattern, 0)
		got := re.ReplaceAllLiteralString(tt.input, tt.repl)
		if got != tt.want {
			t.Errorf("ReplaceAllLiteralString(%q, %q, %q) = %q, want %q",
				tt.pattern, tt.input, tt.repl, got, tt.want)
		}
	}
}

func TestReplaceAll(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		repl    string
		want    string
	}{
		{`\d+`, "age: 42", "XX", "age: XX"},
		{`(\w+)@(\w+)\.(\w+)`, "user@example.com", "$1 at $2 dot $3", "user at example dot com"},
		{`\d+`, "age: 42", "[$0]", "age: [42]"},
		{`(\d+)`, "1 2 3", "($1)", "(1) (2) (3)"},
		{`\d+`, "price: 10", "$$", "price: $"},
		{`\d+`, "age: 42", "$1", "age: "},
		{`(?<num>\d+)`, "age: 42", "${num}!", "age: 42!"},
	}
	for _, tt := range tests {
		re := MustCompile(tt.pattern, 0)
		got := re.ReplaceAllString(tt.input, tt.repl)
		if got != tt.want {
			t.Errorf("ReplaceAllString(%q, %q, %q) = %q, want %q",
				tt.pattern, tt.input, tt.repl, got, tt.want)
		}
	}
}

func TestReplaceAllNoMatchReturnsCopy(t *testing.T) {
	re := MustCompile(`\d+`, 0)
	src := "no digits here"
	got := re.ReplaceAllString(src, "X")
	if got != src {
		t.Errorf("ReplaceAllString with no match = %q, want %q", got, src)
	}
}

func TestReplaceAllFunc(t *testing.T) {
	re := MustCompile(`\d+`, 0)
	got := re.ReplaceAllFunc([]byte("1 2 3"), func(s []byte) []byte {
		n, _ := strconv.Atoi(string(s))
		return []byte(strconv.Itoa(n * 2))
	})
	if want := "2 4 6"; string(got) != want {
		t.Errorf("ReplaceAllFunc = %q, want %q", got, want)
	}
}

func TestReplaceAllStringFunc(t *testing.T) {
	re := MustCompile(`\d+`, 0)
	got := re.ReplaceAllStringFunc("1 2 3", func(s string) string {
		n, _ := strconv.Atoi(s)
		return strconv.Itoa(n * 2)
	})
	if want := "2 4 6"; got != want {
		t.Errorf("ReplaceAllStringFunc = %q, want %q", got, want)
	}
}

func TestExpandEdgeCases(t *testing.T) {
	names := []string{"", "num"}
	caps := []int{5, 8, 5, 8} // "123" inside "test 123 end"
	src := []byte("test 123 end")

	tests := []struct {
		template string
		want     string
	}{
		{"$0", "123"},
		{"$1", "123"},
		{"$$", "$"},
		{"$${foo}", "${foo}"},
		{"before $1 after", "before 123 after"},
		{"$", "$"},
		{"${", "${"},
		{"$9", ""},
		{"text", "text"},
		{"$0$0", "123123"},
		{"${num}", "123"},
	}
	for _, tt := range tests {
		got := string(expand(nil, []byte(tt.template), src, caps, names))
		if got != tt.want {
			t.Errorf("expand(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestSplitAdjacentDelimiters(t *testing.T) {
	re := MustCompile(`a`, 0)
	got := re.Split("aaa", -1)
	want := []string{"", "", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split = %#v, want %#v", got, want)
	}
}
